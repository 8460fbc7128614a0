package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newShareCommand(ctx *commandContext) *cobra.Command {
	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "Share projects as compact codes",
	}
	shareCmd.AddCommand(newShareCodeCommand(ctx))
	shareCmd.AddCommand(newShareOpenCommand(ctx))
	return shareCmd
}

func newShareCodeCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "code <project-id>",
		Short: "Print a share code for a project",
		Long: "Prints a compressed share code. By default imagery is stripped so the " +
			"code stays short (\"lite\"); pass --full to include generated images.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				code, err := a.service.ShareCode(cmd.Context(), id, !full)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Keep embedded imagery in the code")
	return cmd
}

func newShareOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open [code]",
		Short: "Open a share code as a read-only viewer project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readShareCode(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app) error {
				summary, err := a.service.OpenShareCode(cmd.Context(), code)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opened %q as read-only project %d.\n", summary.Name, summary.ID)
				return nil
			})
		},
	}
}

func readShareCode(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read share code from stdin: %w", err)
	}
	code := strings.TrimSpace(string(raw))
	if code == "" {
		return "", fmt.Errorf("no share code provided; pass it as an argument or pipe it on stdin")
	}
	return code, nil
}
