package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pyproj/internal/logging"
)

type emitOptions struct {
	logger    string
	level     string
	fields    []string
	producers int
	repeat    int
	errText   string
	timeout   time.Duration
}

func newEmitCommand(ctx *commandContext) *cobra.Command {
	var opts emitOptions

	cmd := &cobra.Command{
		Use:   "emit [message...]",
		Short: "Send records through the configured pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(opts.level)
			if err != nil {
				return err
			}
			fields, err := parseFieldFlags(opts.fields)
			if err != nil {
				return err
			}
			if opts.producers < 1 || opts.repeat < 1 {
				return errors.New("--producers and --repeat must be at least 1")
			}

			pipeline := logging.NewPipeline(logging.WithStreams(logging.Streams{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			}))
			if err := pipeline.Configure(cfg); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			if pipeline.Root() == "" {
				_ = pipeline.Shutdown(context.Background())
				return errors.New("configuration has no application logger; nothing would be delivered")
			}
			name := opts.logger
			if name == "" {
				name = pipeline.Root()
			}
			cli := pipeline.Logger(pipeline.Root() + ".cli")
			cli.Debugf("emitting %d records on %s", opts.producers*opts.repeat, name)

			message := strings.Join(args, " ")
			emitErr := emitRecords(cmd.Context(), pipeline.Logger(name).WithFields(fields), level, message, opts)
			if emitErr != nil {
				cli.Warningf("emission interrupted: %v", emitErr)
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), opts.timeout)
			defer cancel()
			cli.Debugf("shutting down session %s", pipeline.SessionID())
			if err := pipeline.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown logging: %w", err)
			}
			if dropped := pipeline.Dropped(); dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d records were dropped by the dispatch queue\n", dropped)
			}
			return emitErr
		},
	}

	cmd.Flags().StringVar(&opts.logger, "logger", "", "Logger name (defaults to the application logger)")
	cmd.Flags().StringVar(&opts.level, "level", "INFO", "Record level")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Extra field as key=value (repeatable)")
	cmd.Flags().IntVar(&opts.producers, "producers", 1, "Concurrent producers")
	cmd.Flags().IntVar(&opts.repeat, "repeat", 1, "Records per producer")
	cmd.Flags().StringVar(&opts.errText, "error", "", "Attach an error with this text and the call stack (emits at ERROR)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Upper bound on draining the queue at exit")
	return cmd
}

// emitRecords runs the producers concurrently. Producers stop early once
// ctx is cancelled.
func emitRecords(ctx context.Context, lg *logging.Logger, level logging.Level, message string, opts emitOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < opts.producers; p++ {
		producer := p
		g.Go(func() error {
			for i := 0; i < opts.repeat; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				fields := logging.Fields{}
				if opts.producers > 1 {
					fields["producer"] = producer
				}
				if opts.repeat > 1 {
					fields["seq"] = i
				}
				if opts.errText != "" {
					lg.WithFields(fields).Exception(errors.New(opts.errText), message)
					continue
				}
				lg.LogFields(level, fields, message)
			}
			return nil
		})
	}
	return g.Wait()
}

// parseFieldFlags turns key=value pairs into fields. Values that parse as
// integers, floats, or booleans keep that type.
func parseFieldFlags(pairs []string) (logging.Fields, error) {
	fields := make(logging.Fields, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q (want key=value)", pair)
		}
		fields[key] = fieldValue(value)
	}
	return fields, nil
}

func fieldValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
