// Command adapulse is the Cardano dashboard session daemon. It connects a
// CIP-30 wallet bridge, authenticates against the dashboard backend,
// follows the block/transaction stream and serves a local status API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sabbai/adapulse/adapters/backend"
	"github.com/sabbai/adapulse/adapters/events"
	"github.com/sabbai/adapulse/adapters/store"
	"github.com/sabbai/adapulse/adapters/wallet"
	"github.com/sabbai/adapulse/config"
	"github.com/sabbai/adapulse/ports"
	"github.com/sabbai/adapulse/service"
	"github.com/sabbai/adapulse/stream"
	transport "github.com/sabbai/adapulse/transport/http"
)

type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.CredentialStore
	backend   *backend.Client
	connector *wallet.Connector
	sessions  *service.SessionService
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "adapulse",
		Short:         "Cardano dashboard session daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(watchCmd(), loginCmd(), whoamiCmd(), logoutCmd())
	return cmd
}

func buildApp() (*app, error) {
	// Missing .env is fine; the environment may be set some other way
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	credStore, redisClient, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(cfg.APIURL)

	registry := wallet.NewRegistry()
	if cfg.BridgeURL != "" {
		bridge := wallet.NewHTTPBridge(cfg.BridgeURL)
		walletID := cfg.Wallet
		if walletID == "" {
			walletID = "lace"
		}
		registry.Register(walletID, bridge)
	}
	connector := wallet.NewConnector(registry, credStore, cfg.ExpectedNetworkID(), logger)

	eventPub, err := buildEventPublisher(redisClient, logger)
	if err != nil {
		return nil, err
	}

	sessions := service.NewSessionService(client, connector, credStore, eventPub, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     credStore,
		backend:   client,
		connector: connector,
		sessions:  sessions,
	}, nil
}

// buildStore picks the credential store: redis when configured, otherwise a
// JSON file under the user config dir
func buildStore(cfg config.Config) (ports.CredentialStore, *redis.Client, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return store.NewRedisStore(client), client, nil
	}

	path := cfg.CredentialsFile
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate config dir: %w", err)
		}
		path = filepath.Join(configDir, "adapulse", "credentials.json")
	}
	return store.NewFileStore(path), nil, nil
}

// buildEventPublisher publishes session events to redis streams when redis
// is configured, otherwise to an in-process channel
func buildEventPublisher(redisClient *redis.Client, logger *slog.Logger) (ports.EventPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	var publisher message.Publisher
	if redisClient != nil {
		var err error
		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}
	return events.NewWatermillPublisher(publisher), nil
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the chain stream and serve the local status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Best-effort session restore; watching works unauthenticated
			if err := a.sessions.Restore(ctx); err != nil {
				a.logger.Info("no session restored", "err", err)
			}

			manager := stream.NewManager(a.cfg.StreamURL,
				stream.WithBackoff(stream.FixedBackoff{Delay: a.cfg.ReconnectDelay}),
				stream.WithLogger(a.logger),
			)
			defer manager.Close()

			sub, err := manager.Subscribe(ctx)
			if err != nil {
				return err
			}
			defer sub.Close()

			agg := stream.NewAggregator(
				stream.WithWindows(a.cfg.BlockWindow, a.cfg.TxWindow),
				stream.WithAggregatorLogger(a.logger),
			)
			go agg.Run(ctx, sub)

			router := transport.SetupRouter(a.sessions, agg)
			server := &http.Server{Addr: a.cfg.StatusAddr, Handler: router}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("status API listening", "addr", a.cfg.StatusAddr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func loginCmd() *cobra.Command {
	var walletID string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Connect a wallet and authenticate with the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			id := walletID
			if id == "" {
				id = a.cfg.Wallet
			}
			var connected error
			if id != "" {
				_, connected = a.connector.Connect(ctx, id)
			} else {
				_, connected = a.connector.Reconnect(ctx)
			}
			if connected != nil {
				return connected
			}

			user, err := a.sessions.Login(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s\n", user.Address)
			return nil
		},
	}
	cmd.Flags().StringVar(&walletID, "wallet", "", "wallet provider id to connect")
	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.sessions.Restore(ctx); err != nil {
				return fmt.Errorf("no active session: %w", err)
			}
			user, ok := a.sessions.CurrentUser()
			if !ok {
				return fmt.Errorf("no active session")
			}
			fmt.Printf("address: %s\n", user.Address)
			for _, addr := range user.WalletAddresses {
				fmt.Printf("linked wallet: %s\n", addr)
			}
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Restore first so the backend call carries the bearer token
			if err := a.sessions.Restore(ctx); err != nil {
				a.logger.Debug("nothing to restore before logout", "err", err)
			}
			if err := a.sessions.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}
