package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"cageclock/internal/focus"
	"cageclock/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("CageClock", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "CageClock:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("CageClock", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	tests := map[string]statusKind{
		"ok":    statusOK,
		" WARN": statusWarn,
		"error": statusError,
		"":      statusInfo,
	}
	for severity, want := range tests {
		if got := statusKindFromSeverity(severity); got != want {
			t.Fatalf("statusKindFromSeverity(%q) = %v, want %v", severity, got, want)
		}
	}
}

func TestFocusLines(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(4*time.Minute + 30*time.Second)

	lines := focusLines(focus.Status{State: focus.StateOnBreak, BreakMode: true, BreakEndTime: &end, Topic: "go"}, false, now, false)
	if !strings.Contains(lines[0], "[WARN] On break (4m30s left)") {
		t.Fatalf("unexpected break line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[INFO] go") {
		t.Fatalf("unexpected topic line %q", lines[1])
	}

	lines = focusLines(focus.Status{State: focus.StateFocusing, Enabled: true, LastNudgeErr: "quota exceeded"}, false, now, false)
	if !strings.Contains(lines[1], "Not set") || !strings.Contains(lines[2], "Last nudge failed: quota exceeded") {
		t.Fatalf("unexpected lines %q", lines)
	}

	lines = focusLines(focus.Status{State: focus.StateOff}, true, now, false)
	if !strings.Contains(lines[2], "daemon not running") {
		t.Fatalf("unexpected offline line %q", lines[2])
	}
}

func TestDescribeBreak(t *testing.T) {
	if got := describeBreak(ipc.BreakStatus{}); got != "Not on a break" {
		t.Fatalf("describeBreak = %q", got)
	}
	got := describeBreak(ipc.BreakStatus{IsOnBreak: true, RemainingMs: 90_000})
	if got != "On a break (1m30s left)" {
		t.Fatalf("describeBreak = %q", got)
	}
}

func TestFormatFocused(t *testing.T) {
	if got := formatFocused(95 * time.Minute); got != "1h 35m" {
		t.Fatalf("formatFocused = %q", got)
	}
	if got := formatFocused(20 * time.Second); got != "0m" {
		t.Fatalf("formatFocused = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("concurrency", 8); got != "concu..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("go", 8); got != "go" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
