// Package lambdaapi wires a hosted application into the AWS Lambda runtime.
package lambdaapi

import (
	"context"
	"log/slog"
	"os"

	"github.com/runvoy/lambdahost/internal/config"
	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/container"
	"github.com/runvoy/lambdahost/internal/logger"

	"github.com/aws/aws-lambda-go/lambda"
)

// Start loads the configuration, boots the framework and serves invocations until the
// runtime stops the process. Configuration and initialization failures exit the process,
// which Lambda reports as an init error.
func Start(fw container.Framework) {
	cfg := config.MustLoad()
	log := logger.Initialize(cfg.Environment, cfg.GetLogLevel())
	ctx, cancel := context.WithTimeout(context.Background(), constants.LambdaInitTimeout)
	defer cancel()

	h, err := Bootstrap(ctx, cfg, fw, container.WithLogger(log))
	if err != nil {
		cancel()
		log.Error("failed to initialize container", "framework", fw.Name(), "error", err)
		os.Exit(1)
	}

	log.Debug("starting Lambda handler", "framework", fw.Name())
	lambda.StartHandler(h)
}

// Bootstrap creates the container handler and runs the framework initialization.
func Bootstrap(
	ctx context.Context, cfg *config.Config, fw container.Framework, opts ...container.Option,
) (*container.Handler, error) {
	h, err := container.New(cfg, fw, opts...)
	if err != nil {
		return nil, err
	}

	if err = h.Initialize(ctx); err != nil {
		return nil, err
	}

	slog.Debug("container initialized", "context", map[string]any{
		"framework":  fw.Name(),
		"async_init": cfg.AsyncInit,
	})
	return h, nil
}
