package main

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/internal/clifmt"
	"github.com/quailyquaily/cmdbridge/session"
	"github.com/spf13/cobra"
)

func newCheckCmd(f *rootFlags) *cobra.Command {
	var cwd string
	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Validate a command against the policy without running it",
		Long: `Validate a command against the policy without running it.

Exits 0 when the command would be allowed and 2 when it is rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pol, err := policyFromViper(f.policy)
			if err != nil {
				return err
			}
			sess, err := session.New(pol.RootDir())
			if err != nil {
				return err
			}
			if cwd = strings.TrimSpace(cwd); cwd != "" {
				if err := sess.Move(sess.Resolve(cwd)); err != nil {
					return fmt.Errorf("--cwd: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			a, err := guard.Validate(strings.Join(args, " "), pol, sess)
			if err != nil {
				fmt.Fprintln(out, clifmt.Fail("rejected: "+err.Error()))
				return exitCodeError{code: 2}
			}
			line := "allowed: " + a.Canonical()
			if a.ChangesDirectory() {
				line += " -> " + a.Target()
			}
			fmt.Fprintln(out, clifmt.Success(line))
			return nil
		},
	}
	cmd.Flags().StringVar(&cwd, "cwd", "", "Validate as if the session were in this directory (inside the root)")
	return cmd
}
