package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commentpulse/comment-pulse/internal/analyzer"
	"github.com/commentpulse/comment-pulse/internal/cache"
	"github.com/commentpulse/comment-pulse/internal/charts"
	"github.com/commentpulse/comment-pulse/internal/config"
	"github.com/commentpulse/comment-pulse/internal/fetcher"
	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/commentpulse/comment-pulse/internal/notifications"
	"github.com/commentpulse/comment-pulse/internal/scheduler"
	"github.com/commentpulse/comment-pulse/internal/service"
	"github.com/commentpulse/comment-pulse/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Comment Pulse service")

	store, err := buildStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	var notifier service.Notifier
	if notificationService := notifications.NewService(cfg); notificationService.Enabled() {
		notifier = notificationService
	}

	var chartRenderer service.ChartRenderer
	if cfg.EnableCharts {
		chartRenderer = charts.NewRenderer(cfg.OutputDir)
	}

	analysisService := service.New(cfg,
		fetcher.NewClient(cfg.YouTubeAPIKey),
		analyzer.New(),
		store, chartRenderer, notifier)

	cacheStore := cache.New()

	schedulerService := scheduler.NewService(cfg, cacheStore)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler(cacheStore)).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(analysisService)).Methods("GET")
	router.Handle("/analyze",
		rateLimitMiddleware(analyzeHandler(cfg, analysisService, cacheStore))).Methods("POST")
	router.HandleFunc("/admin/cache", clearCacheHandler(cfg, cacheStore)).Methods("DELETE")
	router.HandleFunc("/cleanup/{video_id}", cleanupHandler(store)).Methods("DELETE")
	router.PathPrefix("/analysis/").Handler(
		http.StripPrefix("/analysis/", http.FileServer(http.Dir(cfg.OutputDir))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func buildStorage(cfg *config.Config) (storage.Interface, error) {
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	}
	return storage.NewLocalStorage(cfg.OutputDir)
}

// rateLimitMiddleware applies the public /analyze policy of 10 requests per
// minute with a small burst
func rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(6*time.Second), 10)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func analyzeHandler(cfg *config.Config, analysisService *service.Service, cacheStore *cache.Store) http.Handler {
	cacheTTL := time.Duration(cfg.CacheTTLHours) * time.Hour

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req models.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		if entry, ok := cacheStore.Get(req.CacheKey(), cacheTTL); ok {
			logrus.Infof("Returning cached results for video %s", req.VideoID)
			writeJSON(w, http.StatusOK, models.AnalysisResponse{
				VideoID:        req.VideoID,
				Results:        entry.Bundle,
				Summary:        entry.Bundle.SummaryParagraph,
				Visualizations: entry.Bundle.Visualizations,
				Cached:         true,
				Timestamp:      entry.Timestamp,
				ProcessingTime: time.Since(start).Seconds(),
			})
			return
		}

		logrus.Infof("Starting analysis for video %s (days_back=%d, max_comments=%d)",
			req.VideoID, req.DaysBack, req.MaxComments)

		bundle := analysisService.AnalyzeVideo(r.Context(), req)
		cacheStore.Set(req.CacheKey(), bundle)

		writeJSON(w, http.StatusOK, models.AnalysisResponse{
			VideoID:        req.VideoID,
			Results:        bundle,
			Summary:        bundle.SummaryParagraph,
			Visualizations: bundle.Visualizations,
			Cached:         false,
			Timestamp:      time.Now(),
			ProcessingTime: time.Since(start).Seconds(),
		})
	})
}

func healthCheckHandler(cacheStore *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "healthy",
			"timestamp":  time.Now().Format(time.RFC3339),
			"cache_size": cacheStore.Len(),
		})
	}
}

func metricsHandler(analysisService *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(analysisService.GetMetrics()))
	}
}

func clearCacheHandler(cfg *config.Config, cacheStore *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.AdminAPIKey != "" && r.Header.Get("X-API-Key") != cfg.AdminAPIKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		cleared := cacheStore.Clear()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": fmt.Sprintf("Cleared %d cache entries", cleared),
		})
	}
}

func cleanupHandler(store storage.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := mux.Vars(r)["video_id"]

		names, err := store.List(fmt.Sprintf("analysis_%s", videoID))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("failed to list analysis artifacts: %v", err))
			return
		}

		for _, name := range names {
			if err := store.Delete(name); err != nil {
				logrus.Errorf("Failed to delete %s: %v", name, err)
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": fmt.Sprintf("Removed %d artifacts for video %s", len(names), videoID),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
