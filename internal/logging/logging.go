package logging

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger writing to out and, when file is set, to a rotated
// log file. The returned close function flushes the file.
func New(level, file string, out io.Writer) (*slog.Logger, func() error, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	closeFn := func() error { return nil }
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, rotated)
		closeFn = rotated.Close
	}

	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
	return log, closeFn, nil
}
