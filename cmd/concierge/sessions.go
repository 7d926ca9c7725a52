package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/sessions"
)

var sessionsFlags struct {
	format   string
	reviewer string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage conversation sessions",
	Long: `Inspect and manage conversation sessions in the configured store.

Escalation is sticky: once a session is escalated every later generation
reports the escalation until a reviewer clears it.

Examples:
  concierge sessions list
  concierge sessions show s-123 --format json
  concierge sessions clear s-123 --reviewer alice
  concierge sessions prune`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's escalation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete idle, non-escalated sessions older than sessions.idle_ttl",
	Args:  cobra.NoArgs,
	RunE:  runSessionsPrune,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsClearCmd, sessionsPruneCmd)

	for _, c := range []*cobra.Command{sessionsListCmd, sessionsShowCmd} {
		c.Flags().StringVar(&sessionsFlags.format, "format", "text", "output format: text, json, csv")
	}
	sessionsClearCmd.Flags().StringVar(&sessionsFlags.reviewer, "reviewer", "", "reviewer clearing the escalation (required)")
	sessionsClearCmd.MarkFlagRequired("reviewer")
}

func openSessionStore() (sessions.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := sessions.Open(cfg.Sessions)
	if err != nil {
		return nil, cli.NewCommandError("sessions", err)
	}
	return store, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(sessionsFlags.format))
	if err != nil {
		return err
	}
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return cli.NewCommandError("sessions list", err)
	}
	if sessionsFlags.format == string(cli.FormatJSON) {
		return formatter.FormatTo(cmd.OutOrStdout(), list)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), sessionTable(list))
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(sessionsFlags.format))
	if err != nil {
		return err
	}
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("sessions show", err)
	}
	if sessionsFlags.format == string(cli.FormatJSON) {
		return formatter.FormatTo(cmd.OutOrStdout(), sess)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), sessionTable{sess})
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(cmd.Context(), args[0], sessionsFlags.reviewer); err != nil {
		return cli.NewCommandError("sessions clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Escalation cleared for %s by %s\n", args[0], sessionsFlags.reviewer)
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	return runPruneJob(cmd, "sessions")
}

type sessionTable []*sessions.Session

func (t sessionTable) Header() []string {
	return []string{"ID", "ESCALATED", "REASON", "STEP", "MESSAGES", "GENERATIONS", "LAST TEMPLATE", "UPDATED"}
}

func (t sessionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{
			s.ID,
			strconv.FormatBool(s.Escalated),
			s.EscalationReason,
			strconv.Itoa(s.NextStep),
			strconv.Itoa(s.MessageCount),
			strconv.FormatInt(s.Generations, 10),
			s.LastTemplate,
			s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}
