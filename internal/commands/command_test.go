package commands

import (
	"errors"
	"testing"
	"time"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/event add Dentist @ 2026-03-02 14:30", TypeEventAdd},
		{"event del 3f2a", TypeEventDelete},
		{"task add pay rent !high due 2026-03-05", TypeTaskAdd},
		{"/task done 9c1b", TypeTaskDone},
		{"undo", TypeUndo},
		{"/redo", TypeRedo},
		{"free 90", TypeFree},
		{"show week", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseEventAddOptions(t *testing.T) {
	cmd, err := ParseIn("event add Team sync @ 2026-03-02 09:30 for 1h30m remind 10 remind 5 repeat weekly", time.UTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	args := cmd.EventAdd
	if args.Title != "Team sync" {
		t.Fatalf("title = %q", args.Title)
	}
	if want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC); !args.Start.Equal(want) {
		t.Fatalf("start = %v, want %v", args.Start, want)
	}
	if args.Duration != 90*time.Minute {
		t.Fatalf("duration = %v", args.Duration)
	}
	if len(args.Reminds) != 2 || args.Reminds[0] != 10 || args.Reminds[1] != 5 {
		t.Fatalf("reminds = %v", args.Reminds)
	}
	if args.Repeat != "weekly" {
		t.Fatalf("repeat = %q", args.Repeat)
	}
}

func TestParseEventAddDefaults(t *testing.T) {
	cmd, err := Parse("event add Lunch @ 2026-03-02 12:00")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.EventAdd.Duration != time.Hour || cmd.EventAdd.Repeat != "" || len(cmd.EventAdd.Reminds) != 0 {
		t.Fatalf("unexpected defaults: %+v", cmd.EventAdd)
	}
}

func TestParseTaskAdd(t *testing.T) {
	cmd, err := ParseIn("task add file taxes !HIGH due 2026-04-15", time.UTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.TaskAdd.Title != "file taxes" || cmd.TaskAdd.Priority != "high" {
		t.Fatalf("unexpected args: %+v", cmd.TaskAdd)
	}
	if cmd.TaskAdd.Due == nil || cmd.TaskAdd.Due.Format(dateLayout) != "2026-04-15" {
		t.Fatalf("due = %v", cmd.TaskAdd.Due)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	cases := []string{
		"event add @ 2026-03-02 12:00",
		"event add Lunch",
		"event add Lunch @ tomorrow noon",
		"event add Lunch @ 2026-03-02 12:00 for soon",
		"event add Lunch @ 2026-03-02 12:00 remind -5",
		"event add Lunch @ 2026-03-02 12:00 repeat yearly",
		"event add Lunch @ 2026-03-02 12:00 remind",
		"event del",
		"task add",
		"task add chores !urgent",
		"task add chores due 03/05",
		"free zero",
		"show year",
		"show",
		"event",
	}
	for _, in := range cases {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument error, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	for _, in := range []string{"/unknown do x", "event move x"} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
			t.Fatalf("parse %q: expected unknown command error, got %v", in, err)
		}
	}
	_, err := Parse("  / ")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/task add write docs")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		TaskAdd: func(a TaskAddArgs) (Result, error) {
			called = true
			if a.Title != "write docs" {
				t.Fatalf("unexpected title: %q", a.Title)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("undo")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
