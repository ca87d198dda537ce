package main

import (
	"strings"

	"github.com/quailyquaily/cmdbridge/agent"
	"github.com/spf13/cobra"
)

func newExecCmd(f *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Validate, confirm and run a single command",
		Long: `Validate, confirm and run a single command in the policy root.

The exit status is the command's own, 2 when it was rejected, 3 when it was
not approved, 124 on timeout and 127 when the shell could not start.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			lines := agent.NewLineReader(cmd.InOrStdin())
			e := a.engine(agent.WithConfirmer(confirmerFor(a, yes, lines, cmd.ErrOrStderr())))
			out, err := e.Turn(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			if code := exitCodeFor(out); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve without asking")
	return cmd
}
