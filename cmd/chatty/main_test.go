package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/felixgeelhaar/chatty/internal/progression"
	"github.com/felixgeelhaar/chatty/internal/session"
)

// runCLI executes the root command against a temp data directory
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--dir", dir, "--learner", "cli-test"}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFanout(t *testing.T) {
	var debug, errs bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("learner_id", "42")

	logger.Debug("quiet")
	logger.Error("loud")

	if !strings.Contains(debug.String(), "quiet") || !strings.Contains(debug.String(), "loud") {
		t.Errorf("debug handler output = %q, want both records", debug.String())
	}
	if strings.Contains(errs.String(), "quiet") || !strings.Contains(errs.String(), "loud") {
		t.Errorf("error handler output = %q, want only the error record", errs.String())
	}
	if !strings.Contains(errs.String(), "learner_id=42") {
		t.Errorf("error handler output = %q, want attrs carried", errs.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("Enabled() = true below every handler's level")
	}
}

func TestRender(t *testing.T) {
	res := &session.Result{
		Kind:    progression.KindPresented,
		Message: "Lesson 1: Introductions",
		Lesson: &session.LessonView{
			Number:      1,
			Title:       "Introductions",
			Explanation: "Say who you are.\n",
			Examples:    []string{"I am Anna."},
			Task:        "Introduce yourself.",
		},
		Progress: &progression.Progress{Onboarded: true, Accepted: 3, Goals: []string{"travel"}},
	}

	got := render(res)
	for _, want := range []string{"Lesson 1: Introductions", "Say who you are.", "  - I am Anna.", "Task: Introduce yourself.", "Answers accepted: 3", "Goals: travel"} {
		if !strings.Contains(got, want) {
			t.Errorf("render() missing %q in:\n%s", want, got)
		}
	}
}

func TestCLI_LessonFlow(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "levels")
	if err != nil {
		t.Fatalf("levels error = %v", err)
	}
	if !strings.Contains(out, "1. Beginner") {
		t.Errorf("levels output = %q, want Beginner first", out)
	}

	out, err = runCLI(t, dir, "lesson")
	if err != nil {
		t.Fatalf("lesson error = %v", err)
	}
	if !strings.Contains(out, "Choose your level first.") {
		t.Errorf("lesson output = %q, want level prompt", out)
	}

	if _, err := runCLI(t, dir, "level", "beginner"); err != nil {
		t.Fatalf("level error = %v", err)
	}

	out, err = runCLI(t, dir, "lesson")
	if err != nil {
		t.Fatalf("lesson error = %v", err)
	}
	if !strings.Contains(out, "Task:") {
		t.Errorf("lesson output = %q, want a task", out)
	}

	if _, err := runCLI(t, dir, "answer", "I'm", "Tom,", "I", "am", "30", "years", "old"); err != nil {
		t.Fatalf("answer error = %v", err)
	}

	out, err = runCLI(t, dir, "--json", "progress")
	if err != nil {
		t.Fatalf("progress error = %v", err)
	}
	var res struct {
		Kind     string `json:"kind"`
		Progress struct {
			Task         string `json:"task"`
			LessonNumber int    `json:"lesson_number"`
			Accepted     int    `json:"accepted_count"`
		} `json:"progress"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("progress output is not JSON: %v\n%s", err, out)
	}
	if res.Kind != "accepted" {
		t.Errorf("kind = %q, want accepted", res.Kind)
	}
	if res.Progress.LessonNumber != 2 || res.Progress.Accepted != 1 {
		t.Errorf("progress = %+v, want lesson 2 with 1 accepted", res.Progress)
	}
}

func TestCLI_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := runCLI(t, dir, "jump", "three"); err == nil {
		t.Error("jump three error = nil, want error")
	}
	if _, err := runCLI(t, dir, "level"); err == nil {
		t.Error("level without name error = nil, want error")
	}
	if _, err := runCLI(t, dir, "answer"); err == nil {
		t.Error("answer without text error = nil, want error")
	}
}
