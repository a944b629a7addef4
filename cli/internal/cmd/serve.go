package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cclens/cclens/internal/api"
	"github.com/cclens/cclens/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the usage dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.AddCommand(serviceInstallCmd, serviceUninstallCmd,
		serviceStartCmd, serviceStopCmd, serviceStatusCmd)
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := cfg.NewLogger()

	deps, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(deps.Engine, deps.Store, deps.Location, log)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go deps.WatchAndNotify(ctx, srv)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
