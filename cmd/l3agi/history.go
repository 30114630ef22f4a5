package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		sessionID string
		limit     int
		runLogs   bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored messages of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				return errors.New("--session is required")
			}
			if limit <= 0 {
				limit = a.cfg.Agent.HistoryLimit
			}
			ctx := cmd.Context()
			st, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			msgs, err := st.GetMessages(ctx, sessionID, limit)
			if err != nil {
				return err
			}
			total, err := st.CountMessages(ctx, sessionID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "session %s: %d messages, showing %d\n", sessionID, total, len(msgs))
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, m := range msgs {
				who := m.Role
				if m.SenderName != "" {
					who = m.SenderName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", time.Unix(m.CreatedAt, 0).Format(time.DateTime), who, m.Content)
			}
			if runLogs {
				logs, err := st.ListRunLogs(ctx, sessionID, limit)
				if err != nil {
					return err
				}
				for _, l := range logs {
					fmt.Fprintf(tw, "%s\t[%s]\t%s %s\n", time.Unix(l.CreatedAt, 0).Format(time.DateTime), l.Kind, l.Name, l.Input)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Chat session id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Most recent messages to show (default agent.history_limit)")
	cmd.Flags().BoolVar(&runLogs, "run-logs", false, "Also print the engine's run logs")
	return cmd
}
