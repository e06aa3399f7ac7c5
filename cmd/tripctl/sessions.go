package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"travelchat/internal/app"
	"travelchat/internal/bootstrap"
	"travelchat/internal/model"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session management commands",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsRenameCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	cmd.AddCommand(newSessionsSyncCmd())

	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, merged with the remote store when --owner is set",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *bootstrap.App, _ []string) error {
			sessions := a.Sessions.LoadAllFor(commandContext(cmd), ownerFlag(cmd))
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}
			return printSessions(cmd.OutOrStdout(), sessions)
		}),
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the messages of one session",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *bootstrap.App, args []string) error {
			messages, ok := a.Sessions.LoadMessages(commandContext(cmd), args[0])
			if !ok {
				return fmt.Errorf("%w: %s", app.ErrSessionNotFound, args[0])
			}
			printMessages(cmd.OutOrStdout(), messages)
			return nil
		}),
	}
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <name>",
		Short: "Give a session a custom title",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *bootstrap.App, args []string) error {
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			if name == "" {
				return errors.New("name must not be empty")
			}
			session, ok := a.Sessions.RenameFor(commandContext(cmd), args[0], name, ownerFlag(cmd))
			if !ok {
				return fmt.Errorf("%w: %s", app.ErrSessionNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", session.ID, session.Preview)
			return nil
		}),
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session locally and, with --owner, remotely",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *bootstrap.App, args []string) error {
			a.Sessions.DeleteFor(commandContext(cmd), args[0], ownerFlag(cmd))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func newSessionsSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local sessions for --owner and merge the remote copy back",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *bootstrap.App, _ []string) error {
			owner := ownerFlag(cmd)
			if owner == "" {
				return errors.New("sync needs --owner")
			}
			sessions := a.Sessions.LoadAllFor(commandContext(cmd), owner)
			fmt.Fprintf(cmd.OutOrStdout(), "%d sessions after sync\n", len(sessions))
			return nil
		}),
	}
}

func withApp(run func(cmd *cobra.Command, a *bootstrap.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func printSessions(w io.Writer, sessions []model.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION ID\tTITLE\tMESSAGES\tUPDATED")
	for _, s := range sessions {
		title := s.Preview
		if s.CustomTitle {
			title += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, title, len(s.Messages), formatMillis(s.Timestamp))
	}
	return tw.Flush()
}

func printMessages(w io.Writer, messages []model.Message) {
	for _, m := range messages {
		if m.Hidden {
			continue
		}
		if plan, ok := m.Plan(); ok {
			fmt.Fprintf(w, "[plan] %s %s\n", plan.Location, plan.Dates)
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Text)
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
