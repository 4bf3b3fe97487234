package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/container"
	"github.com/runvoy/lambdahost/internal/demo"
	"github.com/runvoy/lambdahost/internal/frameworks"
	"github.com/runvoy/lambdahost/internal/output"
	"github.com/runvoy/lambdahost/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveFlags struct {
	port      string
	kind      string
	framework string
	stage     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo application through a local gateway",
	Long: `Start a local HTTP server that converts every request into a gateway event of the
chosen kind and serves it through the container, as the deployed function would.`,
	Example: fmt.Sprintf(`  - %s serve --kind alb --framework gin
  - curl http://localhost:%s/test`, rootCmd.Use, constants.DevServerPort),
	Args: cobra.NoArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.port, "port", constants.DevServerPort, "Port to listen on")
	serveCmd.Flags().StringVar(&serveFlags.kind, "kind", "v2", "Gateway to emulate (v1, v2, alb or mesh)")
	serveCmd.Flags().StringVar(&serveFlags.framework, "framework", frameworks.NameChi, "Demo framework (chi, gin or fiber)")
	serveCmd.Flags().StringVar(&serveFlags.stage, "stage", "local", "API Gateway stage (REST API only)")
	rootCmd.AddCommand(serveCmd)
}

func serveRun(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	kind, err := parseKind(serveFlags.kind)
	if err != nil {
		return err
	}

	fw := demo.ByName(serveFlags.framework)
	if fw == nil {
		return fmt.Errorf("unknown framework %q", serveFlags.framework)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	h, err := container.New(cfg, fw, container.WithLogger(slog.Default()), container.WithRegisterer(reg))
	if err != nil {
		return err
	}
	if err = h.Initialize(cmd.Context()); err != nil {
		return err
	}

	router := server.NewRouter(h, kind, serveFlags.stage, slog.Default(), server.WithMetrics(reg))
	srv := &http.Server{
		Addr:              net.JoinHostPort("", serveFlags.port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// The server outlives the command timeout; it stops on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.WithoutCancel(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		output.Info("Emulating %s for %s on :%s (Ctrl+C to stop)", kind, fw.Name(), serveFlags.port)
		output.Info("Health check: http://localhost:%s%s", serveFlags.port, server.HealthPath)
		output.Info("Metrics: http://localhost:%s%s", serveFlags.port, server.MetricsPath)
		if listenErr := srv.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			errCh <- listenErr
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	output.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	output.Success("Server stopped")
	return nil
}
