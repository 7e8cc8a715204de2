package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/engine"
	"github.com/loglens/loglens/pkg/server"
)

var (
	watchAddr     string
	watchNoServer bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Monitor a directory of log files and serve the query API",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "HTTP listen address (overrides config)")
	watchCmd.Flags().BoolVar(&watchNoServer, "no-server", false, "disable the HTTP query API")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if watchAddr != "" {
		cfg.Server.Addr = watchAddr
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := eng.Start(ctx); err != nil {
		return err
	}

	var srv *server.Server
	if !watchNoServer {
		srv = server.New(eng, cfg.Server.Addr, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}
	return eng.Stop()
}
