package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farlane/lastmile/internal/config"
	"github.com/farlane/lastmile/internal/errors"
	"github.com/farlane/lastmile/internal/legcache"
	"github.com/farlane/lastmile/internal/logging"
	"github.com/farlane/lastmile/internal/roadnet"
	"github.com/farlane/lastmile/internal/routing/matrix"
	"github.com/farlane/lastmile/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using process environment")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Create a service logger with additional fields
	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "lastmile-route-server",
		"version": "1.0.0",
		"env":     cfg.Environment,
	})

	// Create a context with logger
	ctx := context.Background()
	ctxLogger := &logging.CtxLogger{Logger: serviceLogger}
	ctx = ctxLogger.WithContext(ctx)

	// Fetch the road network artifact from object storage when configured,
	// then load it. Deployments without object storage ship the file.
	if cfg.Graph.Fetch.Enabled {
		fetcher, err := roadnet.NewFetcher(roadnet.FetchOptions{
			Endpoint:  cfg.Graph.Fetch.Endpoint,
			Bucket:    cfg.Graph.Fetch.Bucket,
			AccessKey: cfg.Graph.Fetch.AccessKey,
			SecretKey: cfg.Graph.Fetch.SecretKey,
			UseSSL:    cfg.Graph.Fetch.UseSSL,
		})
		if err != nil {
			serviceLogger.Fatal("Failed to create road network fetcher", map[string]interface{}{
				"error": err.Error(),
			})
		}
		downloaded, err := fetcher.Fetch(ctx, cfg.Graph.Fetch.Object, cfg.Graph.Path)
		if err != nil {
			serviceLogger.Fatal("Failed to fetch road network", map[string]interface{}{
				"error":  err.Error(),
				"object": cfg.Graph.Fetch.Object,
			})
		}
		if downloaded {
			serviceLogger.Info("Road network downloaded", map[string]interface{}{
				"object": cfg.Graph.Fetch.Object,
				"path":   cfg.Graph.Path,
			})
		}
	}

	graph, err := roadnet.LoadFile(cfg.Graph.Path, roadnet.WithSnapRadius(cfg.Graph.SnapRadiusM))
	if err != nil {
		serviceLogger.Fatal("Failed to load road network", map[string]interface{}{
			"error": err.Error(),
			"path":  cfg.Graph.Path,
		})
	}
	if cfg.Graph.FilterSCC {
		before := graph.NodeCount()
		graph = graph.LargestSCC()
		if graph.NodeCount() < before {
			serviceLogger.Info("Filtered road network to largest connected component", map[string]interface{}{
				"nodes_before": before,
				"nodes":        graph.NodeCount(),
			})
		}
	}
	serviceLogger.Info("Road network ready", map[string]interface{}{
		"nodes":       graph.NodeCount(),
		"arcs":        graph.ArcCount(),
		"fingerprint": graph.Fingerprint(),
	})

	// Open the leg cache, namespaced by graph fingerprint so republished
	// networks never serve stale costs.
	cache, err := legcache.Open(ctx, cfg.CacheOptions(graph.Fingerprint()))
	if err != nil {
		serviceLogger.Fatal("Failed to open leg cache", map[string]interface{}{
			"error": err.Error(),
			"kind":  cfg.Cache.Kind,
		})
	}
	if cache != nil {
		serviceLogger.Info("Leg cache ready", map[string]interface{}{"kind": cfg.Cache.Kind})
	}

	// Register metrics on the default registry, exposed via /metrics.
	metrics := server.NewMetrics(prometheus.DefaultRegisterer)
	if mem, ok := cache.(*legcache.Memory); ok {
		prometheus.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "lastmile_legcache_hits_total",
			Help: "Leg cost lookups answered from the in-memory cache.",
		}, func() float64 {
			hits, _ := mem.Stats()
			return float64(hits)
		}))
		prometheus.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "lastmile_legcache_misses_total",
			Help: "Leg cost lookups that fell through to the road network.",
		}, func() float64 {
			_, misses := mem.Stats()
			return float64(misses)
		}))
	}

	// Assemble the matrix provider from the graph and config.
	provOpts := []matrix.Option{matrix.WithLogger(logger)}
	if cache != nil {
		provOpts = append(provOpts, matrix.WithCache(cache))
	}
	if cfg.Graph.Workers > 0 {
		provOpts = append(provOpts, matrix.WithWorkers(cfg.Graph.Workers))
	}
	if cfg.Graph.QueryRate > 0 {
		provOpts = append(provOpts, matrix.WithQueryRate(cfg.Graph.QueryRate))
	}
	if cfg.Graph.TrafficEnabled {
		provOpts = append(provOpts, matrix.WithTraffic(cfg.Graph.TrafficSeed))
	}
	provider := matrix.NewProvider(graph, provOpts...)

	solverCfg, err := cfg.SolverConfig()
	if err != nil {
		serviceLogger.Fatal("Invalid solver configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger)) // Our custom logging middleware
	r.Use(errors.RecoveryMiddleware(serviceLogger))
	r.Use(middleware.Timeout(60 * time.Second))

	// Add request context logger
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get the logger from context or use the base logger
			ctxLogger := logging.FromContext(r.Context())
			if ctxLogger == nil {
				ctxLogger = &logging.CtxLogger{Logger: logger}
			}

			// Add request ID to logger
			reqLogger := ctxLogger.Logger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
			})

			// Create a new context with the request logger
			reqCtxLogger := &logging.CtxLogger{Logger: reqLogger}
			reqCtx := reqCtxLogger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	})

	// Add metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Create server instance with our logger
	srv := server.NewServer(provider, solverCfg, serviceLogger,
		server.WithMetrics(metrics),
		server.WithReheatTemperature(cfg.Solver.ReheatTemperature),
		server.WithGraphStats(graph.NodeCount(), graph.ArcCount()),
	)
	srv.RegisterRoutes(r)

	// Start server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start HTTP server
	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Shutdown the server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	serviceLogger.Info("Server stopped")

	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", map[string]interface{}{"error": err})
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			serviceLogger.Error("error closing leg cache", map[string]interface{}{"error": err})
		}
	}

	serviceLogger.Info("server exited properly")
}
