package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"greenlight/internal/config"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project as JSON or a Markdown pitch document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				target := strings.TrimSpace(outPath)
				if target == "" {
					ext := "json"
					if strings.HasPrefix(strings.ToLower(format), "m") {
						ext = "md"
					}
					target = filepath.Join(a.cfg.Paths.ExportDir, fmt.Sprintf("project-%d.%s", id, ext))
				} else {
					expanded, err := config.ExpandPath(target)
					if err != nil {
						return err
					}
					target = expanded
				}
				if err := a.service.ExportProject(cmd.Context(), id, target, format); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported project %d to %s\n", id, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json or markdown")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination path (defaults into the export directory)")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				summary, err := a.service.ImportProject(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %q as project %d (%s stages).\n", summary.Name, summary.ID, summary.Stages)
				return nil
			})
		},
	}
}
