package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pyproj/internal/config"
	"pyproj/internal/logging"
	"pyproj/internal/logs"
)

const messageColumnWidth = 72

type logsOptions struct {
	lines   int
	follow  bool
	wait    time.Duration
	raw     bool
	handler string
	color   string
	query   logs.Query
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show entries written by the JSON file sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.effectiveConfig()
			if err != nil {
				return err
			}
			handler, err := fileHandler(cfg, opts.handler)
			if err != nil {
				return err
			}
			mode, err := logging.ParseColorMode(opts.color)
			if err != nil {
				return err
			}
			return showLogs(cmd.Context(), cmd.OutOrStdout(), handler, opts, mode.Enabled(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 20, "Number of entries to show (0 for the whole active file)")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().DurationVar(&opts.wait, "wait", time.Second, "Polling window for each follow iteration")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the stored JSON lines unchanged")
	cmd.Flags().StringVar(&opts.handler, "handler", "", "File handler to read (defaults to the first one)")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "Colorize levels: auto, always, or never")
	cmd.Flags().StringVar(&opts.query.Level, "level", "", "Minimum level to show")
	cmd.Flags().StringVar(&opts.query.LoggerPrefix, "logger", "", "Only show this logger and its descendants")
	cmd.Flags().StringVar(&opts.query.Search, "grep", "", "Case-insensitive text to search for")
	return cmd
}

// fileHandler picks the rotating file handler to read. With no name the
// first file handler owned by the application logger wins.
func fileHandler(cfg *config.Config, name string) (config.Handler, error) {
	if name != "" {
		h, ok := cfg.Handlers[name]
		if !ok {
			return config.Handler{}, fmt.Errorf("unknown handler %q", name)
		}
		if h.Type != config.HandlerRotatingFile {
			return config.Handler{}, fmt.Errorf("handler %q is a %s handler, not a file", name, h.Type)
		}
		return h, nil
	}
	if _, lg, ok := cfg.RootLogger(); ok {
		for _, owned := range lg.Handlers {
			if h := cfg.Handlers[owned]; h.Type == config.HandlerRotatingFile {
				return h, nil
			}
		}
	}
	return config.Handler{}, errors.New("no rotating_file handler is configured")
}

func showLogs(ctx context.Context, out io.Writer, h config.Handler, opts logsOptions, colorize bool) error {
	backups := 0
	if h.Rotation == config.RotationNumbered {
		backups = h.BackupCount
	}

	initial := logs.TailOptions{Offset: -1, Limit: opts.lines, Backups: backups}
	if opts.lines <= 0 {
		initial = logs.TailOptions{Offset: 0}
	}
	res, err := logs.Tail(ctx, h.Filename, initial)
	if err != nil {
		return fmt.Errorf("read %s: %w", h.Filename, err)
	}

	printed := printEntries(out, res.Lines, opts, colorize, !opts.follow)
	if !opts.follow {
		if printed == 0 {
			fmt.Fprintln(out, "No log entries available")
		}
		return nil
	}

	offset := res.Offset
	for {
		res, err := logs.Tail(ctx, h.Filename, logs.TailOptions{Offset: offset, Follow: true, Wait: opts.wait})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("follow %s: %w", h.Filename, err)
		}
		printEntries(out, res.Lines, opts, colorize, false)
		offset = res.Offset
		if ctx.Err() != nil {
			return nil
		}
	}
}

// printEntries writes the lines that match the query, as a table or one
// line per entry, and returns how many were shown.
func printEntries(out io.Writer, lines []string, opts logsOptions, colorize, asTable bool) int {
	var shown []logs.Entry
	for _, entry := range logs.ParseLines(lines) {
		if opts.query.Match(entry) {
			shown = append(shown, entry)
		}
	}
	if len(shown) == 0 {
		return 0
	}

	if opts.raw {
		for _, entry := range shown {
			fmt.Fprintln(out, entry.Raw)
		}
		return len(shown)
	}

	if !asTable {
		for _, entry := range shown {
			fmt.Fprintln(out, entryLine(entry, colorize))
		}
		return len(shown)
	}

	rows := make([][]string, 0, len(shown))
	for _, entry := range shown {
		rows = append(rows, []string{
			entryTime(entry),
			entry.Level,
			entry.Logger,
			entryMessage(entry),
			entryFields(entry),
		})
	}
	specs := []columnSpec{
		{},
		{colorize: levelColorizer(colorize)},
		{},
		{maxWidth: messageColumnWidth},
		{maxWidth: messageColumnWidth / 2},
	}
	fmt.Fprintln(out, renderTableSpec([]string{"Time", "Level", "Logger", "Message", "Fields"}, rows, specs))
	return len(shown)
}

func levelColorizer(colorize bool) func(string) string {
	if !colorize {
		return nil
	}
	return func(name string) string {
		level, err := logging.ParseLevel(name)
		if err != nil {
			return name
		}
		return logging.ColorizeLevel(level, name)
	}
}

func entryLine(entry logs.Entry, colorize bool) string {
	if entry.Level == "" && entry.Logger == "" {
		return entry.Raw
	}
	level := entry.Level
	if colorize {
		level = logging.ColorizeLevel(entry.Severity(), level)
	}
	parts := []string{entryTime(entry), level, entry.Logger, entryMessage(entry)}
	if fields := entryFields(entry); fields != "" {
		parts = append(parts, fields)
	}
	return strings.Join(parts, " ")
}

func entryTime(entry logs.Entry) string {
	if entry.Time.IsZero() {
		return "-"
	}
	return entry.Time.Local().Format("2006-01-02 15:04:05.000")
}

func entryMessage(entry logs.Entry) string {
	if entry.Exception == nil {
		return entry.Message
	}
	return fmt.Sprintf("%s [%s: %s]", entry.Message, entry.Exception.Type, entry.Exception.Message)
}

func entryFields(entry logs.Entry) string {
	keys := entry.FieldKeys()
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+entry.Fields[k])
	}
	return strings.Join(pairs, " ")
}
