package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/commentpulse/comment-pulse/internal/analyzer"
	"github.com/commentpulse/comment-pulse/internal/config"
	"github.com/commentpulse/comment-pulse/internal/fetcher"
	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/commentpulse/comment-pulse/internal/storage"
	"github.com/sirupsen/logrus"
)

// CommentFetcher is the upstream pagination contract consumed by the service
type CommentFetcher interface {
	FetchComments(ctx context.Context, videoID string, startTime, endTime time.Time,
		pageSize, maxPages, earlyStopCount int) (models.CommentBatch, error)
}

// ChartRenderer renders chart images for a finished analysis. A rendering
// failure must never fail the analysis; implementations return the list of
// files actually written.
type ChartRenderer interface {
	Render(batch models.CommentBatch, bundle *models.MetricsBundle, videoID string) []string
}

// Notifier delivers a finished analysis summary, best-effort
type Notifier interface {
	SendSummary(videoID string, bundle *models.MetricsBundle) error
}

// Service sequences fetch -> aggregate for one video and degrades to partial
// results on timeout or partial fetch failure. Invocations are independent;
// the only shared state is read-only configuration and the sentiment model.
type Service struct {
	config   *config.Config
	fetcher  CommentFetcher
	analyzer *analyzer.Analyzer
	storage  storage.Interface
	charts   ChartRenderer
	notifier Notifier

	mu      sync.Mutex
	metrics Metrics
}

// Metrics holds serving counters exposed on /metrics
type Metrics struct {
	TotalAnalyses    int                          `json:"total_analyses"`
	LastRun          time.Time                    `json:"last_run"`
	LastRunDuration  string                       `json:"last_run_duration"`
	QualityBreakdown map[models.ResultQuality]int `json:"quality_breakdown"`
	ErrorCount       int                          `json:"error_count"`
}

// New creates a new analysis service. Storage, charts and notifier are
// optional collaborators; nil disables them.
func New(cfg *config.Config, commentFetcher CommentFetcher, commentAnalyzer *analyzer.Analyzer,
	store storage.Interface, charts ChartRenderer, notifier Notifier) *Service {
	return &Service{
		config:   cfg,
		fetcher:  commentFetcher,
		analyzer: commentAnalyzer,
		storage:  store,
		charts:   charts,
		notifier: notifier,
		metrics: Metrics{
			QualityBreakdown: make(map[models.ResultQuality]int),
		},
	}
}

// AnalyzeVideo fetches comments for the request window and aggregates them
// into a metrics bundle. It never returns an unstructured fault: every
// failure below this boundary is converted into a well-formed bundle.
func (s *Service) AnalyzeVideo(ctx context.Context, req models.AnalysisRequest) *models.MetricsBundle {
	start := time.Now()
	bundle := s.run(ctx, req, start)
	s.recordMetrics(bundle, time.Since(start))
	return bundle
}

// GetMetrics returns current serving counters as JSON
func (s *Service) GetMetrics() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func (s *Service) recordMetrics(bundle *models.MetricsBundle, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalAnalyses++
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.QualityBreakdown[bundle.Quality]++
	if bundle.Error != "" {
		s.metrics.ErrorCount++
	}
}

func (s *Service) run(ctx context.Context, req models.AnalysisRequest, start time.Time) *models.MetricsBundle {
	budget := time.Duration(s.config.FetchTimeoutSeconds) * time.Second

	endTime := time.Now().UTC()
	startTime := endTime.AddDate(0, 0, -req.DaysBack)

	maxComments := req.MaxComments
	if maxComments > s.config.MaxCommentsCap {
		maxComments = s.config.MaxCommentsCap
	}
	pageSize := maxComments / 2
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}

	logrus.Infof("Fetching comments for video %s, looking back %d days, max %d comments",
		req.VideoID, req.DaysBack, maxComments)

	fetchCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	batch, err := s.fetcher.FetchComments(fetchCtx, req.VideoID, startTime, endTime,
		pageSize, s.config.MaxPages, maxComments)

	if err != nil {
		if errors.Is(err, fetcher.ErrQuotaExceeded) || errors.Is(err, fetcher.ErrVideoNotFound) {
			logrus.Errorf("Terminal fetch failure for video %s: %v", req.VideoID, err)
			return errorBundle(fmt.Sprintf("Error analyzing comments: %v", err), err)
		}
		// The fetch context deadline is the wall-clock budget, so a fetch
		// cut off mid-flight surfaces here as DeadlineExceeded
		if errors.Is(err, context.DeadlineExceeded) {
			if len(batch) > 0 {
				logrus.Warnf("Fetch budget exceeded (%v), returning %d comments collected so far",
					budget, len(batch))
				return s.analyzeAvailable(batch, req.VideoID, models.QualityPartialTimeout)
			}
			return timeoutBundle(budget)
		}
		if len(batch) > 0 {
			logrus.Warnf("Fetch failed after collecting %d comments, degrading to partial analysis: %v",
				len(batch), err)
			return s.analyzeAvailable(batch, req.VideoID, models.QualityPartialError)
		}
		logrus.Errorf("Error fetching comments for video %s: %v", req.VideoID, err)
		return errorBundle(fmt.Sprintf("Error fetching comments: %v", err), err)
	}

	if time.Since(start) > budget {
		if len(batch) > 0 {
			logrus.Warnf("Fetch budget exceeded (%v), returning partial results", budget)
			return s.analyzeAvailable(batch, req.VideoID, models.QualityPartialTimeout)
		}
		return timeoutBundle(budget)
	}

	return s.analyzeAvailable(batch, req.VideoID, models.QualityComplete)
}

// analyzeAvailable aggregates whatever was collected. An unexpected failure
// inside aggregation is downgraded to a best-effort bundle carrying the
// partial markers rather than escaping as a fault.
func (s *Service) analyzeAvailable(batch models.CommentBatch, videoID string,
	quality models.ResultQuality) (bundle *models.MetricsBundle) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Aggregation failed for video %s: %v", videoID, r)
			bundle = errorBundle(
				fmt.Sprintf("Error during analysis: %v. Analyzed %d comments.", r, len(batch)),
				fmt.Errorf("aggregation failure: %v", r))
			bundle.Quality = models.QualityPartialError
			bundle.PartialResults = true
			bundle.CommentsAnalyzed = len(batch)
			bundle.TotalComments = len(batch)
		}
	}()

	bundle = s.analyzer.Analyze(batch)

	if quality != models.QualityComplete && bundle.Quality != models.QualityEmpty {
		bundle.Quality = quality
		bundle.PartialResults = true
		bundle.CommentsAnalyzed = len(batch)
		bundle.SummaryParagraph = fmt.Sprintf("Partial analysis based on %d comments. The full analysis would take longer. %s",
			len(batch), bundle.SummaryParagraph)
	}

	s.renderCharts(batch, bundle, videoID)
	s.persistResults(videoID, bundle)
	s.notify(videoID, bundle)

	return bundle
}

func (s *Service) renderCharts(batch models.CommentBatch, bundle *models.MetricsBundle, videoID string) {
	if s.charts == nil || len(batch) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Chart rendering failed for video %s: %v", videoID, r)
			bundle.Visualizations = []string{}
		}
	}()
	bundle.Visualizations = s.charts.Render(batch, bundle, videoID)
}

func (s *Service) persistResults(videoID string, bundle *models.MetricsBundle) {
	if s.storage == nil {
		return
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to marshal analysis results: %v", err)
		return
	}

	if err := s.storage.Store(fmt.Sprintf("analysis_%s.json", videoID), data); err != nil {
		logrus.Errorf("Failed to store analysis results: %v", err)
	}
	if err := s.storage.Store(fmt.Sprintf("analysis_%s_summary.txt", videoID),
		[]byte(bundle.SummaryParagraph)); err != nil {
		logrus.Errorf("Failed to store analysis summary: %v", err)
	}
}

func (s *Service) notify(videoID string, bundle *models.MetricsBundle) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendSummary(videoID, bundle); err != nil {
		logrus.Errorf("Failed to send analysis notification: %v", err)
	}
}

// errorBundle produces the zero-metrics failure bundle. Failures are tagged
// PartialError, never Empty: the Empty quality is reserved for a video that
// legitimately has no comments, and the /metrics quality breakdown relies on
// the distinction.
func errorBundle(summary string, err error) *models.MetricsBundle {
	return analyzer.EmptyBundle(models.QualityPartialError, summary, err.Error())
}

func timeoutBundle(budget time.Duration) *models.MetricsBundle {
	err := fmt.Errorf("timeout exceeded (%v) while fetching comments", budget)
	bundle := analyzer.EmptyBundle(models.QualityPartialTimeout,
		"Analysis timed out. The server took too long to fetch comments. Try again with a video that has fewer comments.",
		err.Error())
	return bundle
}
