package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

//go:embed docs/manifest-format.md
var manifestFormatDoc string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the manifest format reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		content := manifestFormatDoc

		// Plain markdown when piped.
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}

		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}
		rendered, err := renderer.Render(content)
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}
