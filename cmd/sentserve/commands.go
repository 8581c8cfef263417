package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/sentserve/internal/cli"
	"github.com/bastiangx/sentserve/internal/utils"
	"github.com/bastiangx/sentserve/pkg/config"
	"github.com/bastiangx/sentserve/pkg/server"
	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	queryLimit int
	replLimit  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve completions over HTTP",
	Long: `Loads the trie snapshot (building it from the corpus when missing) and serves
GET /autocomplete?q=<prefix>&n=<limit>. Limits are reloaded when the config file
changes. SIGHUP rebuilds the trie from the corpus without dropping requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var ipcCmd = &cobra.Command{
	Use:   "ipc",
	Short: "Answer msgpack completion requests on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, completer, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		srv := server.NewIPCServer(completer, a.cfg.Server, cmd.InOrStdin(), cmd.OutOrStdout())
		return srv.Start(cmd.Context())
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive completion loop for testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, completer, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		limit := a.cfg.CLI.DefaultLimit
		if cmd.Flags().Changed("limit") {
			limit = replLimit
		}
		log.Debug("Input info:", "minPrefix", a.cfg.Server.MinPrefix, "maxPrefix", a.cfg.Server.MaxPrefix, "limit", limit)
		h := cli.NewInputHandler(completer, a.cfg.Server.MinPrefix, a.cfg.Server.MaxPrefix, limit)
		return h.Start(cmd.Context())
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the trie from the corpus and save the snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(configPath)
		if err != nil {
			return err
		}
		defer a.Close()
		t, err := a.rebuild(cmd.Context())
		if err != nil {
			return err
		}
		st := t.Stats()
		out := cmd.OutOrStdout()
		label := lipgloss.NewStyle().Bold(true)
		fmt.Fprintf(out, "%s %s\n", label.Render("sentences:"), utils.FormatWithCommas(st.Sentences))
		fmt.Fprintf(out, "%s %s\n", label.Render("nodes:    "), utils.FormatWithCommas(st.Nodes))
		fmt.Fprintf(out, "%s %d\n", label.Render("max depth:"), st.MaxDepth)
		if a.store != nil {
			fmt.Fprintf(out, "%s %s\n", label.Render("saved to: "), a.cfg.Store.Backend)
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <prefix>",
	Short: "Print completions for one prefix as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, completer, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		limit := a.cfg.Server.DefaultLimit
		if cmd.Flags().Changed("limit") {
			limit = queryLimit
		}
		res, err := completer.Complete(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		completions := res.Completions
		if completions == nil {
			completions = []string{}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(server.AutocompleteResponse{Completions: completions})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
			ReportCaller:    false,
			ReportTimestamp: false,
		})
		styles := log.DefaultStyles()
		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		logger.SetStyles(styles)

		logger.Print("")
		logger.Print("[ SentServe ] Completes whole sentences from a dialogue corpus")
		logger.Print("", "version", Version)
		logger.Print("")
		logger.Print("use -h or --help to see available options")
		logger.Print("Github Repo", "gh", gh)
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 10, "Number of completions to return")
	replCmd.Flags().IntVarP(&replLimit, "limit", "n", 10, "Number of completions to return")
}

// setup loads config and the trie, and builds the completer.
func setup(ctx context.Context) (*app, *suggest.Completer, error) {
	a, err := loadApp(configPath)
	if err != nil {
		return nil, nil, err
	}
	t, err := a.loadTrie(ctx)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	completer, err := a.completer(t)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, completer, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, completer, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewHTTPServer(completer, a.cfg.Server)

	if a.cfgPath != "" {
		w, err := config.NewWatcher(a.cfgPath)
		if err != nil {
			log.Warnf("Config hot reload disabled: %v", err)
		} else {
			w.Subscribe(srv.ApplyConfig)
			if err := w.Start(ctx); err != nil {
				log.Warnf("Config hot reload disabled: %v", err)
			}
			defer w.Stop()
		}
	}

	go rebuildOnHangup(ctx, a, completer)

	showStartupInfo(a, completer)
	return srv.ListenAndServe(ctx)
}

// rebuildOnHangup swaps in a freshly built trie whenever SIGHUP arrives.
func rebuildOnHangup(ctx context.Context, a *app, completer *suggest.Completer) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			t, err := a.rebuild(ctx)
			if err != nil {
				log.Errorf("Rebuild failed, keeping current trie: %v", err)
				continue
			}
			completer.Swap(t)
			log.Warnf("Swapped in rebuilt trie with %d sentences", t.Len())
		}
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(a *app, completer *suggest.Completer) {
	l := log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel})
	stats := completer.Stats()
	l.Infof("Version: %s", Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("Sentences: %s", utils.FormatWithCommas(stats["sentences"]))
	l.Infof("Listening on: %s", a.cfg.Server.Addr)
	l.Info("status: ready")
}
