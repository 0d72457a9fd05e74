// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package advisor provides the portfolio intelligence service.
//
// This package contains the main Service type that coordinates all
// components: the Ghostfolio REST client, the LLM agent, the response
// cache, the verification engine, HTTP routing, and observability
// infrastructure.
//
// # Usage
//
//	cfg := advisor.Config{
//	    GhostfolioURL:   "http://localhost:3333",
//	    SecurityToken:   os.Getenv("GHOSTFOLIO_SECURITY_TOKEN"),
//	    Model:           "gpt-4o",
//	    ModelAPIKey:     os.Getenv("OPENAI_API_KEY"),
//	}
//	svc, err := advisor.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/agent"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/cache"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/ghostfolio"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/orchestrator"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/routes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/verification"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the advisor service.
//
// # Description
//
// Service abstracts the advisor lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Assumptions
	//
	//   - Caller will not modify the router.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds advisor configuration options.
//
// # Required Fields
//
//   - GhostfolioURL, SecurityToken: The Ghostfolio instance to query.
//   - Model, ModelAPIKey: The primary LLM.
//
// # Optional Fields
//
// Everything else has defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12400
	Port int

	// GhostfolioURL is the base URL of the Ghostfolio instance.
	GhostfolioURL string

	// SecurityToken is the Ghostfolio account security token exchanged
	// for a JWT at startup.
	SecurityToken string

	// Model is the primary LLM model name.
	Model string

	// ModelAPIKey authenticates against the LLM provider.
	ModelAPIKey string

	// ModelBaseURL points at an OpenAI-compatible endpoint.
	// Empty uses the provider default.
	ModelBaseURL string

	// FallbackModel is retried once when the primary model is throttled.
	// Empty disables fallback.
	FallbackModel string

	// FallbackAPIKey authenticates the fallback provider.
	// Empty reuses ModelAPIKey.
	FallbackAPIKey string

	// FallbackBaseURL points the fallback at a different endpoint.
	FallbackBaseURL string

	// APIToken guards the /v1 API group. Empty disables authentication.
	APIToken string

	// CacheTTL is how long identical answers are reused. Default: 5m
	CacheTTL time.Duration

	// CacheMaxSize bounds the response cache. Default: 128
	CacheMaxSize int

	// PatternConfigPath optionally overrides the verification patterns
	// from a YAML file.
	PatternConfigPath string

	// QueriesPerSecond is the sustained service-wide query rate.
	// Zero disables limiting.
	QueriesPerSecond float64

	// QueryBurst is the burst allowance on top of the sustained rate.
	QueryBurst int

	// MaxIterations bounds the agent's reasoning loop per query.
	MaxIterations int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Empty disables tracing export.
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	client        *ghostfolio.Client
	orchestrator  *orchestrator.QueryOrchestrator
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new advisor Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (when an endpoint is set)
//  3. Initializes Prometheus metrics
//  4. Creates the Ghostfolio client and LLM agent
//  5. Builds the verification engine and response cache
//  6. Wires the query orchestrator and HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults where safe.
//
// # Outputs
//
//   - Service: Ready-to-run advisor service.
//   - error: Non-nil if initialization fails.
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	var metrics *observability.AdvisorMetrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for advisor")
	}

	var onRetry func(op string)
	if metrics != nil {
		onRetry = metrics.RecordBackendRetry
	}
	client, err := ghostfolio.NewClient(ghostfolio.Config{
		BaseURL:       s.config.GhostfolioURL,
		SecurityToken: s.config.SecurityToken,
		OnRetry:       onRetry,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create Ghostfolio client: %w", err)
	}
	s.client = client

	portfolioAgent, err := agent.New(agent.Config{
		Model:           s.config.Model,
		APIKey:          s.config.ModelAPIKey,
		BaseURL:         s.config.ModelBaseURL,
		FallbackModel:   s.config.FallbackModel,
		FallbackAPIKey:  s.config.FallbackAPIKey,
		FallbackBaseURL: s.config.FallbackBaseURL,
		MaxIterations:   s.config.MaxIterations,
	}, agent.NewToolset(client, nil))
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	engine, err := s.initVerificationEngine()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create verification engine: %w", err)
	}

	responseCache := cache.New(
		cache.WithTTL(s.config.CacheTTL),
		cache.WithMaxSize(s.config.CacheMaxSize),
	)

	s.orchestrator, err = orchestrator.New(orchestrator.Config{
		QueriesPerSecond: s.config.QueriesPerSecond,
		QueryBurst:       s.config.QueryBurst,
	}, portfolioAgent, responseCache, engine, metrics)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting advisor server",
		"port", s.config.Port,
		"ghostfolio_url", s.config.GhostfolioURL,
		"model", s.config.Model)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12400
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.CacheMaxSize == 0 {
		cfg.CacheMaxSize = cache.DefaultMaxSize
	}
	cfg.EnableMetrics = true
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up an OTLP trace exporter sending spans to the configured
// collector over insecure gRPC (appropriate for internal networks).
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown.
//   - error: Non-nil if tracer setup fails.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("advisor-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initVerificationEngine builds the engine, honoring the optional
// pattern override file.
func (s *service) initVerificationEngine() (*verification.Engine, error) {
	var patternCfg *verification.PatternConfig
	if s.config.PatternConfigPath != "" {
		loaded, err := verification.LoadPatternConfig(s.config.PatternConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load pattern config: %w", err)
		}
		patternCfg = loaded
		slog.Info("Loaded verification pattern overrides",
			"path", s.config.PatternConfigPath)
	}
	return verification.NewEngine(patternCfg)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("advisor-service"))

	routes.SetupRoutes(s.router, s.orchestrator, s.config.APIToken)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
