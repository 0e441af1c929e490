package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.tdpain.net/codemicro/vecnews/cmd/vecnewsd/internal/config"
	vhttp "git.tdpain.net/codemicro/vecnews/cmd/vecnewsd/internal/http"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		slog.Error("unhandled error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(config.Get, openBackend).ExecuteContext(ctx)
}

// app carries what every subcommand needs. The fields are replaced in tests.
type app struct {
	loadConfig func() (*config.Config, error)
	open       openBackendFunc

	conf *config.Config
}

// withBackend opens a backend for the duration of fn.
func (a *app) withBackend(cmd *cobra.Command, fn func(b *backend) error) error {
	b, err := a.open(cmd.Context(), a.conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("unable to close backend cleanly", "error", err)
		}
	}()
	return fn(b)
}

func newRootCmd(loadConfig func() (*config.Config, error), open openBackendFunc) *cobra.Command {
	a := &app{loadConfig: loadConfig, open: open}

	root := &cobra.Command{
		Use:   "vecnewsd",
		Short: "Read the news alongside your own posts",
		Long: `vecnewsd merges your own posts with top headlines from a news provider.

Run "vecnewsd serve" to start the web interface and JSON API, or use the
feed, search and post commands from a terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.conf = conf
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: conf.LogLevel})))
			return nil
		},
	}

	root.AddCommand(
		a.serveCmd(),
		a.feedCmd(),
		a.searchCmd(),
		a.postCmd(),
	)
	return root
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(b *backend) error {
				handler := vhttp.NewHandler(vhttp.Deps{
					Aggregator: b.Aggregator,
					Posts:      b.Posts,
					RateLimit:  a.conf.RateLimit,
					RateBurst:  a.conf.RateBurst,
					TrustProxy: a.conf.TrustProxy,
				})
				return vhttp.Listen(cmd.Context(), a.conf.HTTPAddress, handler)
			})
		},
	}
}
