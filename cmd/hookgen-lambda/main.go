package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/lambdaproxy"
	"github.com/tjfontaine/hookgen/internal/runtime"
	"github.com/tjfontaine/hookgen/internal/server"
)

func main() {
	handler, err := buildHandler()
	if err != nil {
		// Serve a clear 500 per invocation instead of crash-looping the function
		slog.Error("hookgen is misconfigured", slog.String("error", err.Error()))
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			server.WriteError(w, r, domain.ErrInternal("service is not configured", err))
		})
	}

	lambda.Start(lambdaproxy.New(handler).Handle)
}

func buildHandler() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := runtime.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	app, err := runtime.New(cfg, runtime.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return app.Handler(), nil
}
