// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ydocsync/lib/config"
	"github.com/bureau-foundation/ydocsync/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one subcommand. run receives the arguments after the
// subcommand name.
type command struct {
	summary string
	run     func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"chunk":   {summary: "chunk a file and print statistics", run: runChunk},
		"put":     {summary: "store a file as a document's server update", run: runPut},
		"get":     {summary: "print a document's server update", run: runGet},
		"apply":   {summary: "merge key=value edits into a document", run: runApply},
		"inspect": {summary: "list stored keys", run: runInspect},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "--version" || args[0] == "version" {
		if len(args) > 1 && args[1] == "--verbose" {
			fmt.Fprintf(stdout, "ydocsync %s\n", version.Full())
		} else {
			fmt.Fprintf(stdout, "ydocsync %s\n", version.Info())
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, args[1:], stdin, stdout)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `ydocsync stores CRDT document updates as content-defined chunks.

Usage:
  ydocsync <command> [flags] [arguments]

Commands:
`)
	for _, name := range []string{"chunk", "put", "get", "apply", "inspect"} {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, `
Run "ydocsync <command> --help" for a command's flags.
Run "ydocsync version --verbose" for build details.
`)
}

// newFlagSet returns a flag set with the help flag every command
// shares.
func newFlagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("ydocsync "+name, pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	return flagSet
}

// parseFlags parses args and reports whether the caller should stop
// because help was printed.
func parseFlags(flagSet *pflag.FlagSet, args []string) (bool, error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// storeFlags are shared by the commands that open a store.
type storeFlags struct {
	configPath string
	dbPath     string
}

func (f *storeFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&f.dbPath, "db", "", "SQLite store path, overriding the configuration")
}

// load resolves the configuration. Without a config file, --db is
// required and every other setting takes its default.
func (f *storeFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	case f.dbPath != "":
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("no store configured: pass --config, set %s, or pass --db", config.EnvVar)
	}
	if err != nil {
		return nil, err
	}
	if f.dbPath != "" {
		cfg.Store.Path = f.dbPath
	}
	return cfg, nil
}

// newLogger builds the stderr logger described by the configuration
// and installs it as the slog default.
func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
