package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cageclock/internal/ipc"
)

func newFocusCommand(ctx *commandContext) *cobra.Command {
	focusCmd := &cobra.Command{
		Use:   "focus",
		Short: "Toggle focus mode",
	}

	toggle := func(enabled bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.StateResponse](client, ipc.SetFocus{Enabled: enabled})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !enabled {
					fmt.Fprintln(out, "Focus mode off")
					return nil
				}
				fmt.Fprintln(out, "Focus mode on")
				if resp.State.Topic == "" {
					fmt.Fprintln(out, "No topic set; nudges are paused until you run `cageclock topic set <topic>`")
				} else {
					fmt.Fprintf(out, "Topic: %s\n", resp.State.Topic)
				}
				return nil
			})
		}
	}

	focusCmd.AddCommand(&cobra.Command{
		Use:   "on",
		Short: "Enable focus mode and start nudging",
		Args:  cobra.NoArgs,
		RunE:  toggle(true),
	})
	focusCmd.AddCommand(&cobra.Command{
		Use:   "off",
		Short: "Disable focus mode",
		Args:  cobra.NoArgs,
		RunE:  toggle(false),
	})

	return focusCmd
}

func newBreakCommand(ctx *commandContext) *cobra.Command {
	breakCmd := &cobra.Command{
		Use:   "break",
		Short: "Start, end, or inspect a focus break",
	}

	breakCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Suspend focus mode for the configured break length",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.BreakStarted](client, ipc.StartBreak{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Break started; focus resumes at %s\n", resp.EndTime.Local().Format(time.Kitchen))
				return nil
			})
		},
	})

	breakCmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "End the current break and resume focus mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := ipc.Call[ipc.Empty](client, ipc.EndBreak{}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Break ended; focus mode on")
				return nil
			})
		},
	})

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a break is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.BreakStatus](client, ipc.GetBreakStatus{})
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeBreak(*resp))
				return nil
			})
		},
	}
	addJSONFlag(statusCmd, &statusJSON)
	breakCmd.AddCommand(statusCmd)

	return breakCmd
}

func describeBreak(status ipc.BreakStatus) string {
	if !status.IsOnBreak {
		return "Not on a break"
	}
	remaining := (time.Duration(status.RemainingMs) * time.Millisecond).Round(time.Second)
	if status.EndTime == nil {
		return fmt.Sprintf("On a break (%s left)", remaining)
	}
	return fmt.Sprintf("On a break until %s (%s left)", status.EndTime.Local().Format(time.Kitchen), remaining)
}

func newTopicCommand(ctx *commandContext) *cobra.Command {
	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage the focus topic",
	}

	topicCmd.AddCommand(&cobra.Command{
		Use:     "set <topic>",
		Aliases: []string{"use"},
		Short:   "Set the active focus topic",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.StateResponse](client, ipc.SetTopic{Topic: topic})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Focus topic set to %q\n", resp.State.Topic)
				return nil
			})
		},
	})

	topicCmd.AddCommand(&cobra.Command{
		Use:   "add <topic>",
		Short: "Save a topic without switching to it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.StateResponse](client, ipc.AddTopic{Topic: topic})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved topic (active: %q)\n", resp.State.Topic)
				return nil
			})
		},
	})

	topicCmd.AddCommand(&cobra.Command{
		Use:     "rm <topic>",
		Aliases: []string{"remove"},
		Short:   "Remove a saved topic",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.StateResponse](client, ipc.RemoveTopic{Topic: topic})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.State.Topic == "" {
					fmt.Fprintln(out, "Topic removed; no active topic")
					return nil
				}
				fmt.Fprintf(out, "Topic removed; active topic is %q\n", resp.State.Topic)
				return nil
			})
		},
	})

	topicCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Topics) == 0 {
					fmt.Fprintln(out, "No topics saved")
					return nil
				}
				rows := make([][]string, 0, len(resp.Topics))
				for _, topic := range resp.Topics {
					marker := ""
					if topic == resp.State.Topic {
						marker = "*"
					}
					rows = append(rows, []string{marker, topic})
				}
				fmt.Fprint(out, renderTable([]string{"Active", "Topic"}, rows, nil))
				return nil
			})
		},
	})

	return topicCmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url-or-path>",
		Short: "Report whether a page would be redirected while focusing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.URLDecision](client, ipc.CheckURL{Path: args[0]})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Blocked {
					fmt.Fprintf(out, "%s is blocked; redirecting to %s\n", resp.Path, resp.RedirectTo)
					return nil
				}
				fmt.Fprintf(out, "%s is allowed\n", resp.Path)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var recordWatch bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show today's focus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if recordWatch {
					if _, err := ipc.Call[ipc.Empty](client, ipc.RecordWatch{}); err != nil {
						return err
					}
				}
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Stats)
				}
				out := cmd.OutOrStdout()
				if resp.Stats == nil {
					fmt.Fprintln(out, "No statistics recorded yet")
					return nil
				}
				rows := [][]string{
					{"Focused today", formatFocused(resp.Stats.FocusedToday)},
					{"Videos watched", fmt.Sprintf("%d", resp.Stats.VideosWatched)},
					{"Distractions filtered", fmt.Sprintf("%d", resp.Stats.VideosFiltered)},
				}
				if !resp.Stats.LastReset.IsZero() {
					rows = append(rows, []string{"Counting since", resp.Stats.LastReset.Local().Format("Jan 2 15:04")})
				}
				fmt.Fprint(out, renderTable([]string{"Stat", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	cmd.Flags().BoolVar(&recordWatch, "record-watch", false, "Count one watched video before printing")
	return cmd
}

func formatFocused(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
