package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cageclock/internal/daemonctl"
	"cageclock/internal/focus"
	"cageclock/internal/keystore"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cageclock daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), 10*time.Second)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the cageclock daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the cageclock daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(cfg, exe, daemonLaunchOptions(ctx), 5*time.Second, 10*time.Second)
			if err != nil {
				return err
			}
			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, focus, and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			now := time.Now()

			printSection(stdout, "System Status", colorize)
			if snap.Daemon.Running {
				detail := fmt.Sprintf("Running (pid %d, started %s)", snap.Daemon.PID, keystore.FormatTimeAgo(snap.Daemon.StartedAt, now))
				fmt.Fprintln(stdout, renderStatusLine("CageClock", statusOK, detail, colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("CageClock", statusWarn, "Not running (run `cageclock start`)", colorize))
			}
			for _, check := range snap.Checks {
				fmt.Fprintln(stdout, renderStatusLine(check.Name, statusKindFromSeverity(check.Severity()), check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Focus", colorize)
			if snap.Daemon.FocusError != "" {
				fmt.Fprintln(stdout, renderStatusLine("State", statusError, snap.Daemon.FocusError, colorize))
				return nil
			}
			for _, line := range focusLines(snap.Daemon.Focus, snap.Offline, now, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	addJSONFlag(statusCmd, &statusJSON)

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func printSection(w io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
}

func focusLines(status focus.Status, offline bool, now time.Time, colorize bool) []string {
	lines := make([]string, 0, 4)

	switch status.State {
	case focus.StateFocusing:
		lines = append(lines, renderStatusLine("State", statusOK, "Focusing", colorize))
	case focus.StateOnBreak:
		detail := "On break"
		if status.BreakEndTime != nil {
			remaining := status.BreakEndTime.Sub(now).Round(time.Second)
			if remaining < 0 {
				remaining = 0
			}
			detail = fmt.Sprintf("On break (%s left)", remaining)
		}
		lines = append(lines, renderStatusLine("State", statusWarn, detail, colorize))
	default:
		lines = append(lines, renderStatusLine("State", statusInfo, "Off", colorize))
	}

	if status.Topic != "" {
		lines = append(lines, renderStatusLine("Topic", statusInfo, status.Topic, colorize))
	} else {
		lines = append(lines, renderStatusLine("Topic", statusWarn, "Not set (run `cageclock topic set <topic>`)", colorize))
	}

	if offline {
		lines = append(lines, renderStatusLine("Nudges", statusInfo, "Inactive (daemon not running)", colorize))
		return lines
	}
	switch {
	case status.LastNudgeErr != "":
		lines = append(lines, renderStatusLine("Nudges", statusWarn, "Last nudge failed: "+status.LastNudgeErr, colorize))
	case !status.LastNudge.IsZero():
		lines = append(lines, renderStatusLine("Nudges", statusOK, "Last nudge "+keystore.FormatTimeAgo(status.LastNudge, now), colorize))
	case status.Nudging:
		lines = append(lines, renderStatusLine("Nudges", statusOK, "Scheduled", colorize))
	default:
		lines = append(lines, renderStatusLine("Nudges", statusInfo, "Idle", colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
}
