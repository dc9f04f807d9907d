// Package cli implements the respondd command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/respond/internal/config"
	"github.com/raysh454/respond/internal/server"
	"github.com/raysh454/respond/internal/store"
	"github.com/raysh454/respond/logging"
	"github.com/raysh454/respond/respond"
)

// NewRootCommand returns the respondd root command with all subcommands.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "respondd",
		Short: "Serve and format JSON, ndjson and JSONP responses",
		Long: `respondd renders records as JSON, newline-delimited JSON or
JSONP-style callback invocations. "serve" runs the demo records API and
"format" renders a JSON document from stdin the way the API would.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newFormatCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
		h2c        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the records API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.ListenAddr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("h2c") {
				cfg.Server.EnableH2C = h2c
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.Flags().BoolVar(&h2c, "h2c", false, "Accept HTTP/2 without TLS")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewZapLogger("respondd", cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	dbPath := cfg.Storage.Path
	if dbPath != ":memory:" {
		if dbPath, err = config.ExpandPath(dbPath); err != nil {
			return fmt.Errorf("expanding storage path: %w", err)
		}
	}
	st, err := store.Open(dbPath, logger.With(logging.F("component", "store")))
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := respond.New(cfg.Formatter.Respond(), logger.With(logging.F("component", "respond")))
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:    cfg.Server.ListenAddr,
		EnableH2C:     cfg.Server.EnableH2C,
		ReadTimeout:   cfg.Server.ReadTimeout,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Store:         st,
		Formatter:     f,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	hs := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.F("addr", hs.Addr), logging.F("h2c", cfg.Server.EnableH2C))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}

func newFormatCommand() *cobra.Command {
	var (
		mode         string
		callback     string
		pretty       bool
		recordStatus bool
		noStatus     bool
	)

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render a JSON document from stdin",
		Long: `format reads one JSON document from stdin and prints it the way the
API renders it. Objects become a JSON document, arrays become ndjson and
--callback wraps the result as name(...);`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			cfg := respond.DefaultConfig()
			cfg.PrettyPrint = pretty
			cfg.AddRecordStatus = recordStatus
			cfg.AddStatus = !noStatus

			f, err := respond.New(cfg, nil)
			if err != nil {
				return err
			}

			target := "/"
			if callback != "" {
				target += "?callback=" + url.QueryEscape(callback)
			}
			req, err := http.NewRequest(http.MethodGet, target, nil)
			if err != nil {
				return err
			}

			var resp *respond.Response
			rv := respond.RawMessage(input)
			switch mode {
			case "jsonl":
				resp, err = f.HandleJSONL(req, rv)
			case "jsonp":
				resp, err = f.HandleJSONP(req, rv)
			case "json":
				resp, err = f.HandleJSON(req, rv)
			default:
				return fmt.Errorf("unknown mode %q (want jsonl|jsonp|json)", mode)
			}
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "jsonl", "Rendering mode: jsonl|jsonp|json")
	cmd.Flags().StringVar(&callback, "callback", "", "Wrap the output in this callback")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent plain JSON output")
	cmd.Flags().BoolVar(&recordStatus, "record-status", false, "Add the status field to ndjson records")
	cmd.Flags().BoolVar(&noStatus, "no-status", false, "Do not add the status field to objects")
	return cmd
}
