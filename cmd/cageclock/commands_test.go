package main

import (
	"encoding/json"
	"strings"
	"testing"

	"cageclock/internal/services"
	"cageclock/internal/stats"
)

func TestFocusWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "keys", "add", testKey, "--name", "main")
	requireContains(t, out, "Added main (AIzaSyD-...rstu) as the active key")

	out = env.run(t, "keys", "list")
	requireContains(t, out, "main")
	requireContains(t, out, "AIzaSyD-...rstu")
	requireNotContains(t, out, testKey)

	out = env.run(t, "topic", "set", "go", "concurrency")
	requireContains(t, out, `Focus topic set to "go concurrency"`)

	out = env.run(t, "focus", "on")
	requireContains(t, out, "Focus mode on")
	requireContains(t, out, "Topic: go concurrency")

	out = env.run(t, "videos")
	requireContains(t, out, "Go Concurrency Patterns")
	requireContains(t, out, "https://www.youtube.com/watch?v=a")
	requireNotContains(t, out, "quick tip")
	requireContains(t, out, "More results available")

	out = env.run(t, "videos", "--pages", "2")
	requireContains(t, out, "Generics deep dive")
	requireNotContains(t, out, "More results available")

	out = env.run(t, "topic", "add", "rust")
	requireContains(t, out, `Saved topic (active: "go concurrency")`)

	out = env.run(t, "topic", "list")
	requireContains(t, out, "go concurrency")
	requireContains(t, out, "rust")

	out = env.run(t, "topic", "rm", "go", "concurrency")
	requireContains(t, out, `Topic removed; active topic is "rust"`)

	out = env.run(t, "focus", "off")
	requireContains(t, out, "Focus mode off")
}

func TestBreakCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, env.run(t, "break", "status"), "Not on a break")
	requireContains(t, env.run(t, "break", "start"), "Break started")
	requireContains(t, env.run(t, "break", "status"), "On a break until")
	requireContains(t, env.run(t, "break", "end"), "Break ended")
	requireContains(t, env.run(t, "break", "status"), "Not on a break")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, env.run(t, "check", "/shorts/abc"), "/shorts/abc is allowed")

	env.run(t, "focus", "on")
	out := env.run(t, "check", "https://www.youtube.com/shorts/abc?feature=share")
	requireContains(t, out, "/shorts/abc is blocked; redirecting to /")
	requireContains(t, env.run(t, "check", "/watch"), "/watch is allowed")
}

func TestStatsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "stats", "--record-watch", "--json")
	var daily stats.Daily
	if err := json.Unmarshal([]byte(out), &daily); err != nil {
		t.Fatalf("decode stats json: %v (%s)", err, out)
	}
	if daily.VideosWatched != 1 {
		t.Fatalf("expected one watched video, got %+v", daily)
	}

	out = env.run(t, "stats")
	requireContains(t, out, "Videos watched")
	requireContains(t, out, "Focused today")
}

func TestErrorsAreUserMessages(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"videos"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"keys", "add", "not-a-key", "--no-verify"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "Invalid API key format") {
		t.Fatalf("expected format error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"keys", "add"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without a key")
	}
}

func TestPrintErrorAddsHint(t *testing.T) {
	var out strings.Builder
	printError(&out, services.New(services.KindUpstream, 500, "Backend Error"))
	requireContains(t, out.String(), "Error: Backend Error")
	requireContains(t, out.String(), "Hint: Something went wrong")

	out.Reset()
	printError(&out, services.Validation("Topic cannot be empty"))
	if strings.Contains(out.String(), "Hint:") {
		t.Fatalf("validation errors need no hint, got %q", out.String())
	}
}

func TestKeysAddFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)

	cmd := newRootCommand()
	var stdout strings.Builder
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader(testKey + "\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "keys", "add", "--stdin", "--no-verify"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("keys add --stdin returned error: %v", err)
	}
	requireContains(t, stdout.String(), "API Key 1")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "status")
	requireContains(t, out, "System Status")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "YouTube API")
	requireContains(t, out, "[INFO] Off")

	env.run(t, "focus", "on")
	out = env.run(t, "status")
	requireContains(t, out, "[OK] Focusing")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	requireContains(t, env.run(t, "test-notify"), "ntfy topic not configured")
}

func TestCommandsWithoutDaemon(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")
	cfg := setupOfflineConfig(t)
	_, _, err := runCLI(t, []string{"focus", "on"}, cfg)
	if err == nil || !strings.Contains(err.Error(), "cageclock start") {
		t.Fatalf("expected dial hint, got %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, cfg)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "Inactive (daemon not running)")
}
