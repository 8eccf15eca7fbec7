package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"github.com/xhit/go-str2duration/v2"

	"github.com/sandeepkv93/aegis/internal/caldav"
	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/tasks"
)

// withApp wires the services without reminders or background refresh and
// closes them when fn returns.
func withApp(ctx context.Context, cmd *cli.Command, fn func(*Application, io.Writer) error) error {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	logger, _, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	app, err := NewApplication(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app, cmd.Root().Writer)
}

func parseDay(raw string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		y, m, d := fallback.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", raw)
	}
	return day, nil
}

func parseSpan(raw string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("bad span %q", raw)
	}
	return d, nil
}

func spanFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{Name: "span", Usage: "length of the range, e.g. 7d or 36h", Value: value}
}

func agendaCommand() *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "print events, due tasks and feed items",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "first day (YYYY-MM-DD), default today"},
			spanFlag("7d"),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
				loc := app.config.Location()
				from, err := parseDay(cmd.String("from"), loc, time.Now())
				if err != nil {
					return err
				}
				span, err := parseSpan(cmd.String("span"))
				if err != nil {
					return err
				}
				if len(app.feeds.Sources()) > 0 {
					if _, err := app.feeds.Refresh(ctx); err != nil {
						app.logger.Warn("some feeds failed to refresh", logging.ErrAttr(err))
					}
				}
				printAgenda(w, app.calendar.Agenda(ctx, from, from.Add(span)))
				return nil
			})
		},
	}
}

func printAgenda(w io.Writer, items []calendar.Occurrence) {
	if len(items) == 0 {
		fmt.Fprintln(w, "nothing scheduled")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	day := ""
	for _, o := range items {
		if d := o.Start.Format("Mon 2006-01-02"); d != day {
			day = d
			fmt.Fprintf(tw, "%s\n", day)
		}
		when := "all day"
		if !o.AllDay {
			when = o.Start.Format("15:04") + "-" + o.End.Format("15:04")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", when, o.Title, o.Source, shortID(o.EventID))
	}
	_ = tw.Flush()
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "report conflicts, free gaps and a suggested slot",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "block", Usage: "length of the block to place", Value: time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
				now := time.Now().In(app.config.Location())
				a := app.calendar.AnalyzeSchedule(ctx, now)
				fmt.Fprintf(w, "window: %s - %s\n", a.From.Format(time.DateTime), a.To.Format(time.DateTime))
				fmt.Fprintf(w, "events: %d, busy: %s\n", a.EventCount, a.TotalBusy)
				if a.BusiestCount > 0 {
					fmt.Fprintf(w, "busiest day: %s (%d)\n", a.BusiestDay.Format("Mon 2006-01-02"), a.BusiestCount)
				}
				fmt.Fprintf(w, "conflicts: %d\n", len(a.Conflicts))
				for _, c := range a.Conflicts {
					fmt.Fprintf(w, "  %s / %s overlap %s\n", c.First.Title, c.Second.Title, c.Overlap)
				}
				fmt.Fprintf(w, "gaps: %d\n", len(a.Gaps))
				for _, g := range a.Gaps {
					fmt.Fprintf(w, "  %s - %s (%s)\n", g.Start.Format("Mon 15:04"), g.End.Format("Mon 15:04"), g.Duration)
				}
				s := app.calendar.SuggestBestTime(ctx, now, int(cmd.Duration("block").Minutes()))
				fmt.Fprintf(w, "suggested: %s - %s [%s] %s\n", s.Start.Format("Mon 2006-01-02 15:04"), s.End.Format("15:04"), s.Confidence, s.Reason)
				return nil
			})
		},
	}
}

func icsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ics",
		Usage: "exchange events as iCalendar files",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "write every event as ICS",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, default stdout"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						out := cmd.String("out")
						if out == "" || out == "-" {
							return app.calendar.ExportICS(w)
						}
						f, err := os.Create(out)
						if err != nil {
							return err
						}
						if err := app.calendar.ExportICS(f); err != nil {
							_ = f.Close()
							return err
						}
						return f.Close()
					})
				},
			},
			{
				Name:      "import",
				Usage:     "add the events of an ICS file",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						return errors.New("ics import requires a file")
					}
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						f, err := os.Open(path)
						if err != nil {
							return err
						}
						defer f.Close()
						res, err := app.calendar.ImportICS(ctx, f)
						if err != nil {
							return err
						}
						fmt.Fprintf(w, "imported %d, skipped %d\n", len(res.Imported), res.Skipped)
						for _, e := range res.Errors {
							fmt.Fprintf(w, "  %v\n", e)
						}
						return nil
					})
				},
			},
		},
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "list, add and complete tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Usage: "all, active, completed, today or overdue", Value: string(tasks.StatusActive)},
					&cli.StringFlag{Name: "tag", Usage: "only tasks with this tag"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						items := app.tasks.List(tasks.Filter{Status: tasks.Status(cmd.String("filter")), Tag: cmd.String("tag")})
						if len(items) == 0 {
							fmt.Fprintln(w, "no tasks")
							return nil
						}
						tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
						for _, t := range items {
							box := "[ ]"
							if t.Completed {
								box = "[x]"
							}
							due := ""
							if t.DueDate != nil {
								due = t.DueDate.Format(time.DateOnly)
							}
							fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), box, t.Priority, due, t.Title)
						}
						if err := tw.Flush(); err != nil {
							return err
						}
						meta := app.tasks.Meta()
						fmt.Fprintf(w, "level %d, %d XP, streak %d\n", meta.Level, meta.XP, meta.Streak)
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "add a task",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: string(tasks.PriorityMedium)},
					&cli.StringFlag{Name: "due", Usage: "due date (YYYY-MM-DD)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					title := strings.Join(cmd.Args().Slice(), " ")
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						p, err := tasks.ParsePriority(cmd.String("priority"))
						if err != nil {
							return err
						}
						t := tasks.Task{Title: title, Priority: p}
						if raw := cmd.String("due"); raw != "" {
							due, err := parseDay(raw, app.config.Location(), time.Time{})
							if err != nil {
								return err
							}
							t.DueDate = &due
						}
						added, err := app.tasks.Add(ctx, t)
						if err != nil {
							return err
						}
						fmt.Fprintf(w, "added %s %s\n", shortID(added.ID), added.Title)
						return nil
					})
				},
			},
			{
				Name:      "done",
				Usage:     "toggle completion of a task",
				ArgsUsage: "<id or prefix>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ref := cmd.Args().First()
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						t, err := app.tasks.Find(ref)
						if err != nil {
							return err
						}
						updated, err := app.tasks.Toggle(ctx, t.ID)
						if err != nil {
							return err
						}
						state := "reopened"
						if updated.Completed {
							state = "done"
						}
						fmt.Fprintf(w, "%s: %s\n", state, updated.Title)
						return nil
					})
				},
			},
		},
	}
}

func caldavCommand() *cli.Command {
	return &cli.Command{
		Name:  "caldav",
		Usage: "sync events with the configured CalDAV collection",
		Commands: []*cli.Command{
			{
				Name:  "push",
				Usage: "upload every local event",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						client, err := app.caldavClient()
						if err != nil {
							return err
						}
						res, err := client.Push(ctx, app.calendar.Events())
						if err != nil {
							return err
						}
						fmt.Fprintf(w, "pushed %d, failed %d\n", res.Pushed, len(res.Errors))
						return errors.Join(res.Errors...)
					})
				},
			},
			{
				Name:  "pull",
				Usage: "merge remote events around today into the calendar",
				Flags: []cli.Flag{spanFlag("30d")},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						span, err := parseSpan(cmd.String("span"))
						if err != nil {
							return err
						}
						client, err := app.caldavClient()
						if err != nil {
							return err
						}
						now := time.Now()
						res, err := client.PullInto(ctx, app.calendar, now.Add(-span), now.Add(span))
						if err != nil {
							return err
						}
						fmt.Fprintf(w, "added %d, updated %d, failed %d\n", res.Added, res.Updated, len(res.Errors))
						return errors.Join(res.Errors...)
					})
				},
			},
		},
	}
}

func (app *Application) caldavClient() (*caldav.Client, error) {
	return caldav.NewClient(app.config.CalDAV,
		caldav.WithLogger(app.logger),
		caldav.WithLocation(app.config.Location()),
	)
}

func feedsCommand() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "subscribed ICS feeds",
		Commands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "download every feed and report what was found",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *Application, w io.Writer) error {
						if len(app.feeds.Sources()) == 0 {
							fmt.Fprintln(w, "no feeds configured")
							return nil
						}
						statuses, err := app.feeds.Refresh(ctx)
						tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
						for _, s := range statuses {
							state := "ok"
							switch {
							case s.Err != nil:
								state = "error: " + s.Err.Error()
							case s.FromCache:
								state = "cached"
							}
							fmt.Fprintf(tw, "%s\t%d events\t%d occurrences\t%s\n", s.Source.ID, s.Events, s.Occurrences, state)
						}
						if ferr := tw.Flush(); ferr != nil {
							return ferr
						}
						return err
					})
				},
			},
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
