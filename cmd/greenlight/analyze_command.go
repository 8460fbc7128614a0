package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"greenlight/internal/api"
	"greenlight/internal/pipeline"
	"greenlight/internal/project"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var name string
	var poster bool
	var conceptArt bool
	var portraits bool

	cmd := &cobra.Command{
		Use:   "analyze [script-file]",
		Short: "Run the full analysis pipeline on a script or story concept",
		Long: "Reads the source text from the given file, or from stdin when no file is " +
			"given, and runs the staged analysis: narrative breakdown, pitch deck, " +
			"optional visual assets, and production breakdown. Press Ctrl-C once to " +
			"pause at the next stage boundary; the run can be continued later with " +
			"`greenlight resume`.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceText, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			var opts *project.VisualOptions
			if poster || conceptArt || portraits {
				opts = &project.VisualOptions{Poster: poster, ConceptArt: conceptArt, Portraits: portraits}
			}
			return ctx.withApp(func(a *app) error {
				outcome, err := runCancellable(cmd.Context(), a, cmd.ErrOrStderr(), func(runCtx context.Context) (api.RunOutcome, error) {
					return a.service.StartAnalysis(runCtx, name, sourceText, opts)
				})
				if err != nil {
					return err
				}
				return reportOutcome(cmd.OutOrStdout(), a, outcome)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (derived from the first script line when omitted)")
	cmd.Flags().BoolVar(&poster, "poster", false, "Generate a poster image")
	cmd.Flags().BoolVar(&conceptArt, "concept-art", false, "Generate concept art")
	cmd.Flags().BoolVar(&portraits, "portraits", false, "Generate character portraits")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <project-id>",
		Short: "Continue a paused or failed run from its first unfinished stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				outcome, err := runCancellable(cmd.Context(), a, cmd.ErrOrStderr(), func(runCtx context.Context) (api.RunOutcome, error) {
					return a.service.ResumeAnalysis(runCtx, id)
				})
				if err != nil {
					return err
				}
				return reportOutcome(cmd.OutOrStdout(), a, outcome)
			})
		},
	}
	return cmd
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read script %q: %w", args[0], err)
		}
		return string(raw), nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read script from stdin: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", fmt.Errorf("no script provided; pass a file or pipe text on stdin")
	}
	return string(raw), nil
}

// runCancellable runs fn while translating Ctrl-C into a cooperative stop.
// The first signal asks the orchestrator to pause at the next stage boundary;
// a second one cancels the context outright.
func runCancellable(parent context.Context, a *app, errOut io.Writer, fn func(context.Context) (api.RunOutcome, error)) (api.RunOutcome, error) {
	runCtx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		stopsSeen := 0
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				stopsSeen++
				if stopsSeen == 1 {
					a.orch.RequestStop()
					fmt.Fprintln(errOut, "stopping after the current stage; press Ctrl-C again to abandon the in-flight call")
					continue
				}
				cancel()
			}
		}
	}()

	return fn(runCtx)
}

func reportOutcome(out io.Writer, a *app, outcome api.RunOutcome) error {
	switch outcome.Status {
	case pipeline.StatusComplete:
		fmt.Fprintf(out, "Project %d complete.\n", outcome.ProjectID)
	case pipeline.StatusPaused:
		fmt.Fprintf(out, "Project %d paused. Continue with `greenlight resume %d`.\n", outcome.ProjectID, outcome.ProjectID)
	case pipeline.StatusError:
		fmt.Fprintf(out, "Project %d halted: %s\n", outcome.ProjectID, outcome.Error)
		if outcome.Hint != "" {
			fmt.Fprintf(out, "Hint: %s\n", outcome.Hint)
		}
		if outcome.Transient {
			fmt.Fprintf(out, "Completed stages are saved; the failure looks temporary, retry with `greenlight resume %d`.\n", outcome.ProjectID)
		} else {
			fmt.Fprintf(out, "Completed stages are saved; retry with `greenlight resume %d` once resolved.\n", outcome.ProjectID)
		}
		return nil
	default:
		fmt.Fprintf(out, "Project %d status: %s\n", outcome.ProjectID, outcome.Status)
	}
	if p, err := a.service.ShowProject(context.Background(), outcome.ProjectID); err == nil {
		printProjectDetail(out, p)
	}
	return nil
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}
