// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

func LoadRegistry(path string) (*RouteRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg RouteRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse route registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route registry %s: %w", path, err)
	}
	return &reg, nil
}

// Default returns the built-in registry used when no file is configured.
func Default() *RouteRegistry {
	afterScore := []string{"score"}
	return &RouteRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01",
		Steps: []Step{
			{ID: "onboarding", DisplayName: "Onboarding", Route: "/onboarding"},
			{ID: "score", DisplayName: "Readiness Score", Route: "/readiness-score"},
			{ID: "hub", DisplayName: "Hub", Route: "/hub"},
		},
		Routes: []Route{
			{Path: "/onboarding", DisplayName: "Onboarding", Category: "flow"},
			{Path: "/readiness-score", DisplayName: "Readiness Score", Category: "flow", RequiredSteps: []string{"onboarding"}},
			{Path: "/hub", DisplayName: "Hub", Category: "hub", RequiredSteps: afterScore},
			{Path: "/finance", DisplayName: "Finance", Category: "dashboard", RequiredSteps: afterScore},
			{Path: "/insurance", DisplayName: "Insurance Coverage", Category: "dashboard", RequiredSteps: afterScore},
			{Path: "/healthcare", DisplayName: "Healthcare Costs", Category: "dashboard", RequiredSteps: afterScore},
			{Path: "/timeline", DisplayName: "Timeline Planning", Category: "dashboard", RequiredSteps: afterScore},
			{Path: "/nestcare", DisplayName: "NestCare", Category: "dashboard", RequiredSteps: afterScore, Tags: []string{"caregiving"}},
		},
	}
}

// CoreSteps are the milestones the navigation flow completes itself. Every
// registry must declare them.
var CoreSteps = []string{"onboarding", "score", "hub"}

// Validate checks that step ids and route paths are unique, paths are
// absolute, the core steps are declared and every required step is
// declared.
func (r *RouteRegistry) Validate() error {
	steps := make(map[string]struct{}, len(r.Steps))
	for _, s := range r.Steps {
		if s.ID == "" {
			return fmt.Errorf("step with empty id")
		}
		if _, dup := steps[s.ID]; dup {
			return fmt.Errorf("duplicate step %q", s.ID)
		}
		steps[s.ID] = struct{}{}
	}
	for _, id := range CoreSteps {
		if _, ok := steps[id]; !ok {
			return fmt.Errorf("missing core step %q", id)
		}
	}

	paths := make(map[string]struct{}, len(r.Routes))
	for _, rt := range r.Routes {
		if !strings.HasPrefix(rt.Path, "/") {
			return fmt.Errorf("route %q must start with /", rt.Path)
		}
		if _, dup := paths[rt.Path]; dup {
			return fmt.Errorf("duplicate route %q", rt.Path)
		}
		paths[rt.Path] = struct{}{}
		for _, req := range rt.RequiredSteps {
			if _, ok := steps[req]; !ok {
				return fmt.Errorf("route %q requires undeclared step %q", rt.Path, req)
			}
		}
	}
	return nil
}

func (r *RouteRegistry) HasStep(id string) bool {
	for _, s := range r.Steps {
		if s.ID == id {
			return true
		}
	}
	return false
}

// StepRoute returns the route a step is completed on.
func (r *RouteRegistry) StepRoute(id string) (string, bool) {
	for _, s := range r.Steps {
		if s.ID == id {
			return s.Route, s.Route != ""
		}
	}
	return "", false
}

func (r *RouteRegistry) Route(path string) (Route, bool) {
	for _, rt := range r.Routes {
		if rt.Path == path {
			return rt, true
		}
	}
	return Route{}, false
}

// Match finds the route a visited path belongs to, ignoring a query
// string and a trailing slash.
func (r *RouteRegistry) Match(path string) (Route, bool) {
	return r.Route(normalizePath(path))
}

// RequiredSteps lists the prerequisites of path. Unregistered paths have
// none.
func (r *RouteRegistry) RequiredSteps(path string) []string {
	rt, ok := r.Match(path)
	if !ok {
		return nil
	}
	return rt.RequiredSteps
}

// normalizePath drops a query string and a trailing slash.
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// SaveRegistry validates reg and writes it to path, creating parent
// directories as needed.
func SaveRegistry(reg *RouteRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
