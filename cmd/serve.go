package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/expensewise-api/handlers"
	"github.com/LovationAdmin/expensewise-api/routes"
	"github.com/LovationAdmin/expensewise-api/services"
	"github.com/LovationAdmin/expensewise-api/utils"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ai, err := buildAI(ctx, cfg)
	if err != nil {
		return err
	}
	defer ai.Close()

	ledger, err := newLedger(cfg, st, ai.icons)
	if err != nil {
		return err
	}
	if err := ledger.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap ledger: %w", err)
	}

	advisor := services.NewAdvisorService(ledger, ai.gen, cfg.AnalysisTimeout, log)
	h := handlers.NewHandler(ledger, advisor, st, log)
	router := routes.NewRouter(cfg, h, log)

	provider := "none"
	if ai.gen != nil {
		provider = ai.gen.Provider()
	}
	utils.LogStartup(log, "expensewise-api", Version, cfg.Port, st.Backend(), provider, cfg.IsProduction())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// The advisor call may run for the whole analysis timeout.
		WriteTimeout: cfg.AnalysisTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
