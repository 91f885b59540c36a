// Command analyze runs a one-shot comment analysis from the command line
// and prints the resulting bundle as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/commentpulse/comment-pulse/internal/analyzer"
	"github.com/commentpulse/comment-pulse/internal/charts"
	"github.com/commentpulse/comment-pulse/internal/config"
	"github.com/commentpulse/comment-pulse/internal/fetcher"
	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/commentpulse/comment-pulse/internal/service"
	"github.com/commentpulse/comment-pulse/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	videoID := flag.String("video", "", "video ID to analyze (required)")
	daysBack := flag.Int("days", 7, "how many days back to fetch comments")
	maxComments := flag.Int("max", 1000, "maximum number of comments to analyze")
	renderCharts := flag.Bool("charts", false, "render chart PNGs alongside the JSON output")
	flag.Parse()

	if *videoID == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	req := models.AnalysisRequest{
		VideoID:     *videoID,
		DaysBack:    *daysBack,
		MaxComments: *maxComments,
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	store, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	var chartRenderer service.ChartRenderer
	if *renderCharts {
		chartRenderer = charts.NewRenderer(cfg.OutputDir)
	}

	analysisService := service.New(cfg,
		fetcher.NewClient(cfg.YouTubeAPIKey),
		analyzer.New(),
		store, chartRenderer, nil)

	bundle := analysisService.AnalyzeVideo(context.Background(), req)

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	fmt.Println(string(data))
}
