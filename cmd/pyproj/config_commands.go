package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pyproj/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample logging configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Log files go to %s unless %s is set.\n", sampleLogDir(), config.EnvLogFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func sampleLogDir() string {
	cfg, err := config.LoadBytes([]byte(config.SampleConfig()), config.FormatTOML)
	if err != nil {
		return "the configured directory"
	}
	if files := cfg.FileHandlers(); len(files) > 0 {
		return filepath.Dir(files[0].Filename)
	}
	return "the configured directory"
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the logging configuration and show the sink layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg, err := ctx.effectiveConfig()
			if err != nil {
				return fmt.Errorf("apply environment: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; the built-in sample was used")
			}
			fmt.Fprintf(out, "Default level: %s\n", cfg.DefaultLevel)
			fmt.Fprintf(out, "Queue capacity: %d\n", cfg.Queue.Capacity)

			root, lg, ok := cfg.RootLogger()
			if !ok {
				fmt.Fprintln(out, "No logger owns handlers; records will not be delivered")
				fmt.Fprintln(out, "Configuration valid")
				return nil
			}
			fmt.Fprintf(out, "Application logger: %s (propagate %s)\n", root, yesNo(lg.PropagateEnabled()))
			fmt.Fprintln(out, renderTable(
				[]string{"Handler", "Type", "Level", "Formatter", "Destination"},
				handlerRows(cfg, lg.Handlers),
				nil,
			))
			if overrides := loggerOverrides(cfg); len(overrides) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Logger", "Level", "Propagate"}, overrides, nil))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func handlerRows(cfg *config.Config, names []string) [][]string {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		h := cfg.Handlers[name]
		level := h.Level
		if level == "" {
			level = "(all)"
		}
		formatter := h.Formatter
		if formatter == "" {
			formatter = "(default)"
		}
		dest := h.Stream
		if h.Type == config.HandlerRotatingFile {
			dest = fmt.Sprintf("%s [%s, %s bytes x %d]", h.Filename, h.Rotation, strconv.FormatInt(h.MaxBytes, 10), h.BackupCount)
		}
		rows = append(rows, []string{name, h.Type, level, formatter, dest})
	}
	return rows
}

func loggerOverrides(cfg *config.Config) [][]string {
	names := make([]string, 0, len(cfg.Loggers))
	for name := range cfg.Loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		lg := cfg.Loggers[name]
		level := lg.Level
		if level == "" {
			level = "(inherit)"
		}
		rows = append(rows, []string{name, level, yesNo(lg.PropagateEnabled())})
	}
	return rows
}
