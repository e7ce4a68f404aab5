package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"smiroute/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run builds a fresh command tree so that tests do not share flag state
func run(out io.Writer, args []string) error {
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	return root.Execute()
}

// setupLogging sends logrus output to stderr and a rotated log file
func setupLogging(cfg *config.LogConfig, verbose bool) error {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", cfg.Dir, err)
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.File),
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // Days
		Compress:   cfg.Compress,
	}

	// stdout carries command output, so logs go to stderr
	log.SetOutput(io.MultiWriter(os.Stderr, fileLogger))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', using 'info'", cfg.Level)
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	log.Debugf("Logging initialized: file=%s, stderr=enabled", fileLogger.Filename)
	return nil
}
