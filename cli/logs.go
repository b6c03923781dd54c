package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

type logsOptions struct {
	Follow bool   `flag:"follow,f" usage:"keep printing new entries"`
	Level  string `flag:"level,l" usage:"debug, info, warn, error or all" default:"all"`
	Lines  int    `flag:"lines,n" usage:"number of entries to show" default:"50"`
	File   string `flag:"file" usage:"log file, defaults to the configured combined log"`
	Config string `flag:"config,c" usage:"configuration file" default:"config/monitor.json"`
}

// Validate level and line count
func (o logsOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Level, validation.In(
			logger.LevelAll, logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, logger.LevelError)),
		validation.Field(&o.Lines, validation.Required.Error("must be no less than 1"), validation.Min(1)),
	)
}

func newLogsCommand() *cobra.Command {
	var opts logsOptions
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the monitor log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			opts.Level = strings.ToLower(opts.Level)
			if err := opts.Validate(); err != nil {
				return err
			}

			if opts.File == "" {
				cfg, err := loadConfig(cmd, opts.Config, &opts)
				if err != nil {
					return err
				}
				opts.File = cfg.Monitor.LogFile
			}

			out := cmd.OutOrStdout()
			if err := printTail(out, opts); err != nil {
				return err
			}
			if !opts.Follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return followLog(ctx, out, opts.File, opts.Level)
		},
	}
	return bind(cmd, &opts)
}

// printTail last entries, oldest first
func printTail(out io.Writer, opts logsOptions) error {
	entries, err := logger.ReadTail(opts.File, opts.Level, opts.Lines)
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		printEntry(out, entries[i])
	}
	return nil
}

// followLog prints entries appended after the call until ctx is done
func followLog(ctx context.Context, out io.Writer, path, level string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			// interrupt is the normal way out of -f
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return fmt.Errorf("follow %s: %w", path, line.Err)
			}

			entry, ok := logger.ParseLine([]byte(line.Text))
			if !ok {
				fmt.Fprintln(out, line.Text)
				continue
			}
			if level != logger.LevelAll && entry.Level != level {
				continue
			}
			printEntry(out, entry)
		}
	}
}

func printEntry(out io.Writer, e logger.Entry) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", e.Timestamp, strings.ToUpper(e.Level))
	if e.Module != "" {
		fmt.Fprintf(&b, " %s:", e.Module)
	}
	b.WriteString(" " + e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(e.Fields[k])
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	fmt.Fprintln(out, b.String())
}
