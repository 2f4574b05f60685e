package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shawkym/chatpane/pkg/bridge"
	"github.com/shawkym/chatpane/pkg/config"
	"github.com/shawkym/chatpane/pkg/log"
	"github.com/shawkym/chatpane/pkg/metrics"
	"github.com/shawkym/chatpane/pkg/server"
	"github.com/shawkym/chatpane/pkg/widget"
)

const shutdownTimeout = 10 * time.Second

var (
	backendURL     string
	backendAPIKey  string
	serveAddr      string
	serveTitle     string
	serveWelcome   string
	serveTTL       time.Duration
	serveSanitize  bool
	metricsEnabled bool
	metricsAddr    string
	watchConfig    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page",
	Long: `Serve the chat page and its event streams. Each page load gets its own
session. Flags override the configuration file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addBackendFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveTitle, "title", "", "Page title")
	serveCmd.Flags().StringVar(&serveWelcome, "welcome", "", "Welcome text shown until the first message")
	serveCmd.Flags().DurationVar(&serveTTL, "session-ttl", 0, "Evict sessions that never connected after this long")
	serveCmd.Flags().BoolVar(&serveSanitize, "sanitize", false, "Filter backend markup through an HTML policy")
	serveCmd.Flags().BoolVar(&metricsEnabled, "metrics", false, "Enable the Prometheus metrics listener")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (default :9090)")
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload title and welcome text when the config file changes (requires --config)")
}

func addBackendFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&backendURL, "backend", "", "Backend base URL (default http://localhost:8000)")
	cmd.Flags().StringVar(&backendAPIKey, "api-key", "", "Bearer token for the backend")
}

// applyFlagOverrides copies only the flags the user actually set, so file
// values survive unset flags.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend.URL = backendURL
		case "api-key":
			cfg.Backend.APIKey = backendAPIKey
		case "addr":
			cfg.Server.Addr = serveAddr
		case "title":
			cfg.Server.Title = serveTitle
		case "welcome":
			cfg.Server.Welcome = serveWelcome
		case "session-ttl":
			cfg.Server.SessionTTL = serveTTL
		case "sanitize":
			cfg.UI.Sanitize = serveSanitize
		case "metrics":
			cfg.Metrics.Enabled = metricsEnabled
		case "metrics-addr":
			cfg.Metrics.Addr = metricsAddr
		}
	})
}

func newBridgeClient(cfg *config.Config) *bridge.HTTPClient {
	return bridge.NewHTTPClient(bridge.Options{
		BaseURL:    cfg.Backend.URL,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout(),
		MaxRetries: cfg.Backend.RetryAttempts,
		Backoff:    cfg.Backend.RetryBackoff(),
		RateLimit:  cfg.Backend.RateLimit,
		RateBurst:  cfg.Backend.RateLimitBurst,
	})
}

func newSanitizer(cfg *config.Config) widget.Sanitizer {
	if cfg.UI.Sanitize {
		return widget.NewPolicySanitizer()
	}
	return widget.Trusted{}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newBridgeClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		log.WithError(err).WithField("backend", cfg.Backend.URL).Warn("backend not reachable, serving anyway")
	}
	cancel()

	var metricsServer *metrics.Server
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(metrics.ServerConfig{Addr: cfg.Metrics.Addr})
		m = metricsServer.GetMetrics()
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.WithError(err).Error("metrics server stopped unexpectedly")
			}
		}()
	}

	srv := server.New(server.Options{
		Addr:        cfg.Server.Addr,
		Title:       cfg.Server.Title,
		Welcome:     cfg.Server.Welcome,
		Bridge:      client,
		Sanitizer:   newSanitizer(cfg),
		Metrics:     m,
		SessionTTL:  cfg.Server.SessionTTL,
		EventBuffer: cfg.Server.EventBuffer,
	})

	if watchConfig {
		if cfgFile == "" {
			log.Warn("--watch-config needs --config, not watching")
		} else {
			watcher, err := config.NewWatcher(cfgFile)
			if err != nil {
				log.WithError(err).Error("failed to create config watcher")
				fmt.Fprintf(os.Stderr, "Warning: Failed to create config watcher: %v\n", err)
			} else {
				watcher.OnChange(func(prev, next *config.Config) {
					log.WithFields(map[string]interface{}{
						"old_title": prev.Server.Title,
						"new_title": next.Server.Title,
					}).Info("applying reloaded branding")
					srv.SetBranding(next.Server.Title, next.Server.Welcome)
				})
				go watcher.Watch(ctx)
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("chat server did not shut down cleanly")
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server did not shut down cleanly")
		}
	}
	return nil
}
