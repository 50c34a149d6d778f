package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fluxkit/internal/fileutil"
	"fluxkit/internal/flux"
	"fluxkit/internal/history"
	"fluxkit/internal/scp"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded write and erase sessions",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryReadbackCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				sessions, err := store.ListSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions recorded")
					return nil
				}
				rows := make([][]string, 0, len(sessions))
				for _, s := range sessions {
					rows = append(rows, []string{
						s.ID[:8],
						s.StartedAt.Local().Format("2006-01-02 15:04:05"),
						s.Command,
						string(s.Status),
						fmt.Sprintf("%d-%d/%d", s.Range.StartCyl, s.Range.EndCyl, s.Range.Sides),
						strconv.Itoa(s.Summary.Tracks),
						strconv.Itoa(s.Summary.Retries),
						s.Image,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Started", "Command", "Status", "Range", "Tracks", "Retries", "Image"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list (0 lists all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session and its per-track outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				s, err := store.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tracks, err := store.SessionTracks(cmd.Context(), s.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Session "+s.ID, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderField("Command", s.Command))
				fmt.Fprintln(out, renderField("Device", s.Device))
				if s.Image != "" {
					fmt.Fprintln(out, renderField("Image", s.Image))
				}
				fmt.Fprintln(out, renderField("Started", s.StartedAt.Local().Format(time.RFC3339)))
				if s.DriveTicks > 0 {
					fmt.Fprintln(out, renderField("Drive ticks", formatCount(int64(s.DriveTicks))))
				}
				switch s.Status {
				case history.StatusCompleted:
					fmt.Fprintln(out, renderStatusLine("Status", statusOK, "completed", colorize))
				case history.StatusFailed:
					fmt.Fprintln(out, renderStatusLine("Status", statusError, fmt.Sprintf("%s: %s", s.ErrorKind, s.ErrorMessage), colorize))
				default:
					fmt.Fprintln(out, renderStatusLine("Status", statusWarn, string(s.Status), colorize))
				}
				fmt.Fprintln(out)

				if len(tracks) == 0 {
					fmt.Fprintln(out, "No tracks recorded")
					return nil
				}
				rows := make([][]string, 0, len(tracks))
				for _, t := range tracks {
					result := "ok"
					if t.ErrorKind != "" {
						result = t.ErrorKind
					}
					rows = append(rows, []string{
						t.Track.String(),
						string(t.Action),
						strconv.Itoa(t.Writes),
						t.Duration.String(),
						yesNo(t.HasReadback),
						result,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Track", "Action", "Writes", "Duration", "Readback", "Result"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func newHistoryReadbackCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "readback <session-id> <cyl.head>",
		Short: "Show a stored verify readback, optionally exporting it as an SCP capture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTrackID(args[1])
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				s, err := store.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				f, err := store.Readback(cmd.Context(), s.ID, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, f.String())
				if outPath == "" {
					return nil
				}
				b, err := scp.NewBuilder(len(f.IndexList), 0)
				if err != nil {
					return err
				}
				if err := b.AddTrack(scp.TrackIndex(id.Cyl, id.Head), f); err != nil {
					return err
				}
				data, err := b.Bytes()
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileVerified(outPath, data, 0o644); err != nil {
					return fmt.Errorf("write capture: %w", err)
				}
				fmt.Fprintf(out, "Wrote readback to %s\n", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the readback to this SCP file")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished sessions older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			return ctx.withHistory(func(store *history.Store) error {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d sessions\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the newest session to delete")
	return cmd
}

// parseTrackID accepts "cyl.head".
func parseTrackID(s string) (flux.TrackID, error) {
	cylText, headText, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return flux.TrackID{}, fmt.Errorf("track %q: expected cyl.head", s)
	}
	cyl, err := strconv.Atoi(cylText)
	if err != nil || cyl < 0 {
		return flux.TrackID{}, fmt.Errorf("track %q: bad cylinder", s)
	}
	head, err := strconv.Atoi(headText)
	if err != nil || head < 0 || head > 1 {
		return flux.TrackID{}, fmt.Errorf("track %q: head must be 0 or 1", s)
	}
	return flux.TrackID{Cyl: cyl, Head: head}, nil
}
