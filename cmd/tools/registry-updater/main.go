// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nest-readiness/pkg/registry"
)

var registryPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "registry-updater",
		Short: "Maintain the route registry that drives navigation gating",
		Example: `  registry-updater init --path configs/routes.json
  registry-updater add --route /estate --display-name "Estate Planning" --requires score
  registry-updater require --route /timeline --step onboarding
  registry-updater validate --path configs/routes.json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/routes.json", "Path to route registry file")

	root.AddCommand(newInitCmd(), newAddCmd(), newRequireCmd(), newValidateCmd())
	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the built-in route registry to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(registryPath); err == nil {
				return fmt.Errorf("%s already exists", registryPath)
			}
			reg := registry.Default()
			reg.LastUpdated = time.Now().Format(time.RFC3339)
			if err := registry.SaveRegistry(reg, registryPath); err != nil {
				return err
			}
			cmd.Printf("Wrote default registry to %s\n", registryPath)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	var (
		route    registry.Route
		requires string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a route to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			route.RequiredSteps = splitList(requires)
			route.Tags = []string{}
			return update(cmd, func(reg *registry.RouteRegistry) (string, error) {
				if _, exists := reg.Route(route.Path); exists {
					return "", fmt.Errorf("route %s already exists", route.Path)
				}
				reg.Routes = append(reg.Routes, route)
				return fmt.Sprintf("Added route: %s", route.Path), nil
			})
		},
	}
	cmd.Flags().StringVar(&route.Path, "route", "", "Route path (e.g., /finance)")
	cmd.Flags().StringVar(&route.DisplayName, "display-name", "", "Display Name (e.g., Finance)")
	cmd.Flags().StringVar(&route.Description, "description", "", "Description")
	cmd.Flags().StringVar(&route.Category, "category", "dashboard", "Category (flow, hub, dashboard)")
	cmd.Flags().StringVar(&requires, "requires", "", "Comma separated prerequisite steps (e.g., onboarding,score)")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("display-name")
	return cmd
}

func newRequireCmd() *cobra.Command {
	var path, step string
	cmd := &cobra.Command{
		Use:   "require",
		Short: "Gate a route behind a step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return update(cmd, func(reg *registry.RouteRegistry) (string, error) {
				for i := range reg.Routes {
					if reg.Routes[i].Path != path {
						continue
					}
					for _, existing := range reg.Routes[i].RequiredSteps {
						if existing == step {
							return fmt.Sprintf("Route %s already requires %s", path, step), nil
						}
					}
					reg.Routes[i].RequiredSteps = append(reg.Routes[i].RequiredSteps, step)
					return fmt.Sprintf("Route %s now requires %s", path, step), nil
				}
				return "", fmt.Errorf("route %s not found", path)
			})
		},
	}
	cmd.Flags().StringVar(&path, "route", "", "Route path to gate")
	cmd.Flags().StringVar(&step, "step", "", "Step that must be complete first")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if err := checkStepRoutes(reg); err != nil {
				return err
			}
			cmd.Printf("Registry validation passed. Found %d steps and %d routes.\n", len(reg.Steps), len(reg.Routes))
			return nil
		},
	}
}

// update loads the registry, applies fn and saves the result.
func update(cmd *cobra.Command, fn func(*registry.RouteRegistry) (string, error)) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	msg, err := fn(reg)
	if err != nil {
		return err
	}
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	if err := registry.SaveRegistry(reg, registryPath); err != nil {
		return err
	}
	cmd.Println(msg)
	return nil
}

func checkStepRoutes(reg *registry.RouteRegistry) error {
	if len(reg.Steps) == 0 {
		return fmt.Errorf("registry declares no steps")
	}
	for _, s := range reg.Steps {
		if s.Route == "" {
			continue
		}
		if _, ok := reg.Route(s.Route); !ok {
			return fmt.Errorf("step %s points at unregistered route %s", s.ID, s.Route)
		}
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
