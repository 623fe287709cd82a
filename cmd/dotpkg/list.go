package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/style"
)

var listCmd = &cobra.Command{
	Use:       "list [profiles|categories|packages]",
	Short:     "List what the manifests define",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"profiles", "categories", "packages"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, m, err := loadSetup()
		if err != nil {
			return err
		}

		what := "profiles"
		if len(args) > 0 {
			what = args[0]
		}

		out := cmd.OutOrStdout()
		switch what {
		case "profiles":
			rows := make([][]string, 0, len(m.Profiles))
			for _, name := range m.ProfileNames() {
				p := m.Profiles[name]
				packages, err := m.PackagesForProfile(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, fmt.Sprintf("%d", len(packages)), p.Description})
			}
			fmt.Fprintln(out, style.RenderTable([]string{"profile", "packages", "description"}, rows))
		case "categories":
			rows := make([][]string, 0, len(m.Categories))
			for _, name := range m.CategoryNames() {
				c := m.Categories[name]
				rows = append(rows, []string{name, priorityString(c.Priority), c.Description})
			}
			fmt.Fprintln(out, style.RenderTable([]string{"category", "priority", "description"}, rows))
		case "packages":
			rows := make([][]string, 0, len(m.Packages))
			for _, name := range m.PackageNames() {
				p := m.Packages[name]
				rows = append(rows, []string{name, p.Category, p.Description})
			}
			fmt.Fprintln(out, style.RenderTable([]string{"package", "category", "description"}, rows))
		}
		return nil
	},
}

func priorityString(chain []manifest.BackendID) string {
	parts := make([]string, len(chain))
	for i, id := range chain {
		parts[i] = string(id)
	}
	return strings.Join(parts, " > ")
}
