// Copyright 2025 The SentServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the SentServe sentence completion server, its IPC mode and
an interactive REPL.

SentServe stores every sentence of a dialogue corpus in a character trie. A
prefix that reaches a trie node is completed with every stored sentence below
it, in insertion order. A prefix with no path in the trie is handed to a
generative fallback (Ollama or Gemini) when one is configured.

# Usage

Build the trie from the configured corpus and save a snapshot:

	sentserve build

Serve completions over HTTP on :13000:

	sentserve serve
	curl 'localhost:13000/autocomplete?q=How%20can'

Run the msgpack IPC loop on stdin/stdout, or the REPL:

	sentserve ipc
	sentserve repl

Answer a single prefix as JSON:

	sentserve query "What is your"

# Configuration

Config is read from --config, or from ~/.config/sentserve/config.toml which is
created with defaults on first run. Files ending in .yaml or .yml are read as
YAML.

	[server]
	addr = ":13000"
	max_limit = 64
	default_limit = 10

	[corpus]
	paths = ["data"]
	split_sentences = true

	[store]
	backend = "file"
	path = "trie.msgpack"

	[fallback]
	provider = "none"

Relative corpus and store paths are resolved against the config file's
directory. serve reloads limits when the file changes and rebuilds the trie
from the corpus on SIGHUP.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/sentserve/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0-beta"
	AppName = "sentserve"
	gh      = "https://github.com/bastiangx/sentserve"
)

var (
	configPath string
	debugMode  bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           AppName,
	Short:         "Sentence autocomplete server backed by a character trie",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(debugMode, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text, json or logfmt")

	rootCmd.AddCommand(serveCmd, ipcCmd, replCmd, buildCmd, queryCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nExiting...")
			return
		}
		log.Error(err)
		os.Exit(1)
	}
}
