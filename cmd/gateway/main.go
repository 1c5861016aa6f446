package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/multibank/gateway/internal/config"
	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/infra/bankapi"
	"github.com/multibank/gateway/internal/present/rest"
	"github.com/multibank/gateway/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := domain.NewRegistry(cfg.Banks)

	if cfg.Server.EnableTrace {
		cleanup, err := setupTracer(cfg.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()
	}

	client := bankapi.New(registry, cfg.Team.ID, cfg.Team.Secret, cfg.Server.RequestTimeout())

	consent := usecase.NewConsentUsecase(client, cfg.Team.ID)
	payment := usecase.NewPaymentUsecase(client)
	product := usecase.NewProductUsecase(registry, client)

	handler := rest.NewHandler(registry, consent, payment, product)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware("gateway"))
	}

	handler.RegisterRoutes(e)

	slog.Info("starting gateway",
		slog.String("listen", cfg.Server.ListenAddr),
		slog.Int("banks", len(registry.Banks())),
	)
	e.Logger.Fatal(e.Start(cfg.Server.ListenAddr))
}

func setupTracer(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down tracer", slog.String("error", err.Error()))
		}
	}, nil
}
