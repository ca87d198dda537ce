package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/cmdbridge/history"
	"github.com/quailyquaily/cmdbridge/internal/clifmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded turns, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !viper.GetBool("history.enabled") {
				return fmt.Errorf("history is disabled (history.enabled=false)")
			}
			store, gdb, err := historyFromViper(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer closeDB(gdb)

			entries, err := store.List(cmd.Context(), history.ListOptions{SessionID: sessionID, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, clifmt.Dim("no recorded turns"))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %-12s %s\n",
					clifmt.Dim(e.CreatedAt.Local().Format(time.DateTime)),
					clifmt.Key(shortID(e.SessionID)),
					statusLabel(e),
					e.Command,
				)
				if detail := strings.TrimSpace(e.Detail); detail != "" {
					fmt.Fprintln(out, "    "+clifmt.Dim(detail))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of turns to list")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only list turns of this session")
	return cmd
}

func statusLabel(e history.Entry) string {
	label := e.Status
	if e.ExitCode != nil {
		label = fmt.Sprintf("%s(%d)", e.Status, *e.ExitCode)
	}
	if e.ReasonCode != "" {
		label = e.Status + ":" + e.ReasonCode
	}
	return label
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
