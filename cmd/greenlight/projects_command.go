package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"greenlight/internal/config"
	"greenlight/internal/project"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect and manage stored projects",
	}
	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsShowCommand(ctx))
	projectsCmd.AddCommand(newProjectsDeleteCommand(ctx))
	projectsCmd.AddCommand(newProjectsMirrorCommand(ctx))
	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored projects, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				summaries, err := a.service.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No projects yet. Start one with `greenlight analyze`.")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					status := "in progress"
					if s.Complete {
						status = "complete"
					}
					if s.ReadOnly {
						status += " (viewer)"
					}
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.Name,
						s.Stages,
						status,
						s.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Stages", "Status", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newProjectsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's stage results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				p, err := a.service.ShowProject(cmd.Context(), id)
				if err != nil {
					return err
				}
				printProjectDetail(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				removed, err := a.service.DeleteProject(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("project %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d.\n", id)
				return nil
			})
		},
	}
}

func newProjectsMirrorCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "mirror <project-id> [file]",
		Short: "Mirror explicit saves of a project to an external file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			var path string
			if len(args) == 2 {
				expanded, err := config.ExpandPath(args[1])
				if err != nil {
					return err
				}
				path = expanded
			}
			if !clear && path == "" {
				return fmt.Errorf("pass a file to mirror to, or --clear to unlink")
			}
			if clear {
				path = ""
			}
			return ctx.withApp(func(a *app) error {
				if err := a.service.SetMirror(cmd.Context(), id, path); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if path == "" {
					fmt.Fprintf(out, "Unlinked mirror for project %d.\n", id)
				} else {
					fmt.Fprintf(out, "Project %d now mirrors to %s on every save.\n", id, path)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the mirror link")
	return cmd
}

func printProjectDetail(out io.Writer, p *project.Project) {
	fmt.Fprintf(out, "\n%s (project %d)\n", p.Name, p.ID)
	if p.ReadOnly {
		fmt.Fprintln(out, "Read-only viewer copy.")
	}

	if p.Stage1 == nil {
		fmt.Fprintln(out, "Stage 1 (story): pending")
	} else {
		fmt.Fprintf(out, "Stage 1 (story): %s\n", p.Stage1.Logline)
		if p.Stage1.Genre != "" || p.Stage1.Tone != "" {
			fmt.Fprintf(out, "  %s\n", strings.TrimSuffix(strings.TrimSpace(p.Stage1.Genre+" / "+p.Stage1.Tone), "/"))
		}
	}

	if p.Stage2 == nil {
		fmt.Fprintln(out, "Stage 2 (pitch): pending")
	} else {
		fmt.Fprintf(out, "Stage 2 (pitch): %s", p.Stage2.Title)
		if p.Stage2.Tagline != "" {
			fmt.Fprintf(out, " -- %s", p.Stage2.Tagline)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", describeVisuals(p.Stage2))
	}

	if p.Stage3 == nil {
		fmt.Fprintln(out, "Stage 3 (production): pending")
	} else {
		fmt.Fprintf(out, "Stage 3 (production): %d shoot days, %s budget\n", p.Stage3.ShootDayEstimate, p.Stage3.BudgetBand)
	}

	if len(p.FullScenes) > 0 {
		fmt.Fprintf(out, "Scenes: %d extracted\n", len(p.FullScenes))
	}
}

func describeVisuals(deck *project.Stage2Result) string {
	parts := make([]string, 0, 3)
	if deck.PosterBase64 != "" {
		parts = append(parts, "poster")
	}
	if deck.ConceptArtBase64 != "" {
		parts = append(parts, "concept art")
	}
	portraits := 0
	for _, profile := range deck.CharacterProfiles {
		if profile.ImageBase64 != "" {
			portraits++
		}
	}
	if portraits > 0 {
		parts = append(parts, fmt.Sprintf("%d portraits", portraits))
	}
	if len(parts) == 0 {
		return "no visual assets"
	}
	return "visuals: " + strings.Join(parts, ", ")
}
