package main

import (
	"fmt"
	"io"
	"os"

	"github.com/quailyquaily/cmdbridge/agent"
	"github.com/quailyquaily/cmdbridge/internal/clifmt"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd(f *rootFlags) *cobra.Command {
	var (
		yes       bool
		sessionID string
		maxTurns  int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Interactive session: read one command per line, confirm and run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			interactive := isTerminal(cmd.InOrStdin())
			lines := agent.NewLineReader(cmd.InOrStdin())

			e := a.engine(
				agent.WithSessionID(sessionID),
				agent.WithMaxTurns(maxTurns),
				agent.WithConfirmer(confirmerFor(a, yes, lines, out)),
			)
			if sessionID != "" {
				resumed, err := e.Resume(ctx)
				if err != nil {
					return err
				}
				if resumed {
					fmt.Fprintln(out, clifmt.Dim("resumed in "+e.Session().Current()))
				}
			}

			fmt.Fprintln(out, clifmt.Headerf("cmdbridge session %s", e.SessionID()))
			fmt.Fprintln(out, clifmt.Dim(fmt.Sprintf("root %s, timeout %ds, type exit to leave", a.pol.RootDir(), a.pol.TimeoutSeconds())))

			p := &agent.LineProposer{Lines: lines}
			if interactive {
				p.Out = out
				p.Prompt = func(*agent.Feedback) string {
					return clifmt.Prompt(e.Session().Current())
				}
			}
			return e.Run(ctx, p, func(o agent.Outcome) { printOutcome(out, o) })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve every validated command without asking")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id; an existing session resumes in its last directory")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Stop after this many turns (0 means no limit)")
	return cmd
}

// confirmerFor asks on the terminal unless confirmation is off or --yes
// was given.
func confirmerFor(a *app, yes bool, lines *agent.LineReader, out io.Writer) agent.Confirmer {
	if yes || !a.guard.ConfirmRequired() {
		a.log.Warn("auto_confirm_enabled", "flag", yes)
		return agent.AutoConfirmer{}
	}
	return &agent.PromptConfirmer{Lines: lines, Out: out}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
