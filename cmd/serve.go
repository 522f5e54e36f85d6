package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/server"
	"github.com/spigell/talenthub/internal/session"
)

const (
	shutdownTimeout      = 15 * time.Second
	sessionSweepInterval = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default is server.address from the config)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the talenthub api", zap.String("version", version))

	svc, err := newFlows(ctx, config, logger)
	if err != nil {
		logger.Fatal("configuring flows", zap.Error(err))
	}

	identity, err := newIdentity(config.Identity, logger)
	if err != nil {
		logger.Fatal("configuring identity provider", zap.Error(err))
	}

	store, err := newStore(ctx, config.Storage)
	if err != nil {
		logger.Fatal("configuring document storage", zap.Error(err))
	}
	if store == nil {
		logger.Info("document archiving disabled")
	}

	candidates, err := loadTalent(config.Talent)
	if err != nil {
		logger.Fatal("loading candidate directory", zap.Error(err))
	}

	sessions := session.NewRegistry(identity, logger, session.WithIdleTimeout(config.Server.SessionIdleTimeout))
	go sessions.Run(ctx, sessionSweepInterval)

	srv := server.New(server.Options{
		Flows:     svc,
		Sessions:  sessions,
		Talent:    candidates,
		Store:     store,
		Logger:    logger,
		BodyLimit: config.Server.BodyLimitMB * 1024 * 1024,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(config.Server.Address)
	}()

	select {
	case err := <-errCh:
		logger.Fatal("server stopped", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
