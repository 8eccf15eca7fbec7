package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

type Type string

const (
	TypeEventAdd    Type = "event add"
	TypeEventDelete Type = "event del"
	TypeTaskAdd     Type = "task add"
	TypeTaskDone    Type = "task done"
	TypeUndo        Type = "undo"
	TypeRedo        Type = "redo"
	TypeFree        Type = "free"
	TypeShow        Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

type EventAddArgs struct {
	Title    string
	Start    time.Time
	Duration time.Duration
	Reminds  []int
	Repeat   string
}

type EventDeleteArgs struct {
	ID string
}

type TaskAddArgs struct {
	Title    string
	Priority string
	Due      *time.Time
}

type TaskDoneArgs struct {
	ID string
}

type FreeArgs struct {
	Minutes int
}

type ShowArgs struct {
	View string
}

type Command struct {
	Type        Type
	Raw         string
	EventAdd    *EventAddArgs
	EventDelete *EventDeleteArgs
	TaskAdd     *TaskAddArgs
	TaskDone    *TaskDoneArgs
	Free        *FreeArgs
	Show        *ShowArgs
}

// Parse reads a palette command; dates are interpreted in time.Local.
func Parse(input string) (Command, error) {
	return ParseIn(input, time.Local)
}

// ParseIn is Parse with dates interpreted in loc.
func ParseIn(input string, loc *time.Location) (Command, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch head {
	case "event", "task":
		if len(args) == 0 {
			return Command{}, invalid("%s requires a subcommand", head)
		}
		sub := strings.ToLower(args[0])
		switch Type(head + " " + sub) {
		case TypeEventAdd:
			return parseEventAdd(input, args[1:], loc)
		case TypeEventDelete:
			return parseTarget(input, TypeEventDelete, args[1:])
		case TypeTaskAdd:
			return parseTaskAdd(input, args[1:], loc)
		case TypeTaskDone:
			return parseTarget(input, TypeTaskDone, args[1:])
		}
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s %s", head, sub)}
	case string(TypeUndo):
		return Command{Type: TypeUndo, Raw: input}, nil
	case string(TypeRedo):
		return Command{Type: TypeRedo, Raw: input}, nil
	case string(TypeFree):
		return parseFree(input, args)
	case string(TypeShow):
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseEventAdd reads: <title> @ <YYYY-MM-DD HH:MM> [for <duration>]
// [remind <minutes>]... [repeat daily|weekly|monthly]
func parseEventAdd(raw string, args []string, loc *time.Location) (Command, error) {
	at := -1
	for i, arg := range args {
		if arg == "@" {
			at = i
			break
		}
	}
	if at <= 0 {
		return Command{}, invalid("event add requires a title and @ <YYYY-MM-DD HH:MM>")
	}
	title := strings.Join(args[:at], " ")
	rest := args[at+1:]
	if len(rest) < 2 {
		return Command{}, invalid("event add requires a date and a time after @")
	}
	start, err := time.ParseInLocation(dateTimeLayout, rest[0]+" "+rest[1], loc)
	if err != nil {
		return Command{}, invalid("bad start %q, want YYYY-MM-DD HH:MM", rest[0]+" "+rest[1])
	}
	out := EventAddArgs{Title: title, Start: start, Duration: time.Hour}

	opts := rest[2:]
	for i := 0; i < len(opts); i += 2 {
		key := strings.ToLower(opts[i])
		if i+1 >= len(opts) {
			return Command{}, invalid("%s requires a value", key)
		}
		val := opts[i+1]
		switch key {
		case "for":
			d, err := str2duration.ParseDuration(val)
			if err != nil || d <= 0 {
				return Command{}, invalid("bad duration %q", val)
			}
			out.Duration = d
		case "remind":
			m, err := strconv.Atoi(val)
			if err != nil || m < 0 {
				return Command{}, invalid("bad reminder minutes %q", val)
			}
			out.Reminds = append(out.Reminds, m)
		case "repeat":
			freq := strings.ToLower(val)
			switch freq {
			case "daily", "weekly", "monthly":
				out.Repeat = freq
			default:
				return Command{}, invalid("repeat must be daily, weekly or monthly, got %q", val)
			}
		default:
			return Command{}, invalid("unknown option %q", opts[i])
		}
	}
	return Command{Type: TypeEventAdd, Raw: raw, EventAdd: &out}, nil
}

// parseTaskAdd reads: <title> [!low|!medium|!high] [due <YYYY-MM-DD>]
func parseTaskAdd(raw string, args []string, loc *time.Location) (Command, error) {
	out := TaskAddArgs{}
	title := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "!") && len(arg) > 1:
			p := strings.ToLower(arg[1:])
			if p != "low" && p != "medium" && p != "high" {
				return Command{}, invalid("priority must be !low, !medium or !high, got %q", arg)
			}
			out.Priority = p
		case strings.EqualFold(arg, "due") && i+1 < len(args):
			due, err := time.ParseInLocation(dateLayout, args[i+1], loc)
			if err != nil {
				return Command{}, invalid("bad due date %q, want YYYY-MM-DD", args[i+1])
			}
			out.Due = &due
			i++
		default:
			title = append(title, arg)
		}
	}
	out.Title = strings.Join(title, " ")
	if out.Title == "" {
		return Command{}, invalid("task add requires a title")
	}
	return Command{Type: TypeTaskAdd, Raw: raw, TaskAdd: &out}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires exactly one id", typ)
	}
	cmd := Command{Type: typ, Raw: raw}
	if typ == TypeEventDelete {
		cmd.EventDelete = &EventDeleteArgs{ID: args[0]}
	} else {
		cmd.TaskDone = &TaskDoneArgs{ID: args[0]}
	}
	return cmd, nil
}

func parseFree(raw string, args []string) (Command, error) {
	minutes := 60
	if len(args) > 0 {
		m, err := strconv.Atoi(args[0])
		if err != nil || m <= 0 {
			return Command{}, invalid("free takes a positive number of minutes, got %q", args[0])
		}
		minutes = m
	}
	return Command{Type: TypeFree, Raw: raw, Free: &FreeArgs{Minutes: minutes}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires day, week or month")
	}
	view := strings.ToLower(args[0])
	switch view {
	case "day", "week", "month":
	default:
		return Command{}, invalid("show requires day, week or month, got %q", args[0])
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{View: view}}, nil
}
