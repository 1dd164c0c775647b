// pkg/registry/schema.go
package registry

// RouteRegistry describes the navigable routes of the product and the
// steps a user must complete before each one opens.
type RouteRegistry struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Steps       []Step  `json:"steps"`
	Routes      []Route `json:"routes"`
}

// Step is a milestone. Steps are listed in the order a user completes them.
type Step struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Route       string `json:"route"`
}

type Route struct {
	Path          string   `json:"path"`
	DisplayName   string   `json:"displayName"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	RequiredSteps []string `json:"requiredSteps"`
	Tags          []string `json:"tags"`
}
