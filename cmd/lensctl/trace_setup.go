package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lensctl/internal/config"
	"lensctl/internal/trace"
)

// traceFlags holds the --trace* values that were set on the command line.
// Empty strings mean "not given".
type traceFlags struct {
	output    string
	level     string
	mode      string
	format    string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	flags := cmd.Root().PersistentFlags()
	var (
		tf  traceFlags
		err error
	)
	if tf.output, err = flags.GetString("trace"); err != nil {
		return tf, fmt.Errorf("failed to get trace flag: %w", err)
	}
	if tf.level, err = flags.GetString("trace-level"); err != nil {
		return tf, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if tf.mode, err = flags.GetString("trace-mode"); err != nil {
		return tf, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	if tf.format, err = flags.GetString("trace-format"); err != nil {
		return tf, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	if tf.ringSize, err = flags.GetInt("trace-ring-size"); err != nil {
		return tf, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if tf.heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return tf, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	return tf, nil
}

// traceConfig merges flags over the [trace] table of the config file.
// Giving an output without a level traces at the error level.
func traceConfig(tf traceFlags, file config.Trace) (trace.Config, error) {
	pick := func(flag, fromFile string) string {
		if flag != "" {
			return flag
		}
		return fromFile
	}
	output := pick(tf.output, file.Output)
	levelStr := pick(tf.level, file.Level)
	if levelStr == "" && output != "" {
		levelStr = "error"
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid trace level: %w", err)
	}
	mode, err := trace.ParseMode(pick(tf.mode, file.Mode))
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(pick(tf.format, file.Format))
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid trace format: %w", err)
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   tf.ringSize,
		Heartbeat:  tf.heartbeat,
	}, nil
}

// setupTracing creates the tracer for cmd and attaches it to the command
// context, where trace.FromContext finds it. The heartbeat is nil unless
// --trace-heartbeat is set. The returned cleanup flushes and closes the
// tracer.
func setupTracing(cmd *cobra.Command, file config.Trace) (*trace.Heartbeat, func(), error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := traceConfig(tf, file)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil, func() {}, nil
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var heartbeat *trace.Heartbeat
	if cfg.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, cfg.Heartbeat)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if ring, ok := tracer.(*trace.RingTracer); ok {
			_ = ring.Dump(cmd.ErrOrStderr(), trace.FormatText)
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return heartbeat, cleanup, nil
}
