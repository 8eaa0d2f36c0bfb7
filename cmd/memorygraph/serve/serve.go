// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memorygraphco/memorygraph/api"
	"github.com/memorygraphco/memorygraph/pkg/config"
	"github.com/memorygraphco/memorygraph/pkg/conversation"
	"github.com/memorygraphco/memorygraph/pkg/eventstream"
	kafkastream "github.com/memorygraphco/memorygraph/pkg/eventstream/kafka"
	"github.com/memorygraphco/memorygraph/pkg/eventstream/nop"
	"github.com/memorygraphco/memorygraph/pkg/eventstream/worker"
	"github.com/memorygraphco/memorygraph/pkg/feedback"
	"github.com/memorygraphco/memorygraph/pkg/logger"
	"github.com/memorygraphco/memorygraph/pkg/retrieval"
	"github.com/memorygraphco/memorygraph/pkg/storage"
	"github.com/memorygraphco/memorygraph/pkg/storage/inmemory"
	"github.com/memorygraphco/memorygraph/pkg/storage/postgres"
	"github.com/memorygraphco/memorygraph/pkg/storage/sqlite"
)

type ServeCommander struct {
	listen      string
	sqlitePath  string
	postgresURL string
	configDir   string
	debug       bool
	logger      *slog.Logger
}

const serveLongDesc string = `Run the memorygraph API server.

Storage selection:
  memorygraph serve                         In-memory store
  memorygraph serve --sqlite ./memory.db    SQLite store
  memorygraph serve --postgres <url>        Postgres store`

const serveShortDesc string = "Run the memorygraph API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVarP(&cmder.postgresURL, "postgres", "p", "", "Postgres connection URL")
	cmd.Flags().StringVarP(&cmder.configDir, "config-dir", "c", "", "Directory containing config.toml")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	store, err := c.createStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := c.createPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	events := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	defer events.Close()

	tracker := conversation.NewTracker()
	retriever := retrieval.NewService(store, tracker, cfg.ScoringParams(), cfg.Retrieval.TopK)
	adapter := feedback.NewAdapter(store, cfg.Feedback.LearningRate)

	apiServer := api.NewServer(
		api.Config{ListenAddr: cfg.API.Listen},
		store,
		tracker,
		retriever,
		adapter,
		events,
		c.logger,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	case <-ctx.Done():
		return apiServer.Shutdown()
	}
}

// loadConfig resolves configuration from file, environment, and flags.
// Non-empty flags win over everything else.
func (c *ServeCommander) loadConfig() (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, err
	}

	c.bindFlags(v)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ServeCommander) bindFlags(v *viper.Viper) {
	if c.listen != "" {
		v.Set("api.listen", c.listen)
	}
	if c.sqlitePath != "" {
		v.Set("storage.sqlite_path", c.sqlitePath)
	}
	if c.postgresURL != "" {
		v.Set("storage.postgres_url", c.postgresURL)
	}
}

func (c *ServeCommander) createStore(ctx context.Context, cfg *config.Config) (storage.Driver, error) {
	if cfg.Storage.PostgresURL != "" {
		store, err := postgres.NewDriver(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return store, nil
	}

	if cfg.Storage.SQLitePath != "" {
		store, err := sqlite.NewDriver(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", cfg.Storage.SQLitePath)
		return store, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewDriver(), nil
}

func (c *ServeCommander) createPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		c.logger.Debug("no event brokers configured, events disabled")
		return nop.NewPublisher(), nil
	}

	publisher, err := kafkastream.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	c.logger.Info("publishing events to Kafka",
		"brokers", cfg.Events.Brokers,
		"topic", cfg.Events.Topic,
	)
	return publisher, nil
}
