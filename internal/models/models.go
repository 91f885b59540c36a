package models

import (
	"fmt"
	"regexp"
	"time"
)

// Comment represents a single top-level comment fetched from a video
type Comment struct {
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LikeCount   int       `json:"like_count"`
}

// CommentBatch is the ordered, budget-bounded collection produced by one
// fetch. Ordering is whatever the upstream delivered; consumers re-derive
// any temporal ordering they need.
type CommentBatch []Comment

// ResultQuality tags how a MetricsBundle was produced
type ResultQuality string

const (
	QualityComplete       ResultQuality = "complete"
	QualityPartialTimeout ResultQuality = "partial_timeout"
	QualityPartialError   ResultQuality = "partial_error"
	QualityEmpty          ResultQuality = "empty"
)

// RankedComment is one entry of a top-N extraction
type RankedComment struct {
	Author    string  `json:"author"`
	Text      string  `json:"text"`
	LikeCount int     `json:"like_count"`
	Score     float64 `json:"score"`
}

// Contributor aggregates one author's activity
type Contributor struct {
	Author       string  `json:"author"`
	CommentCount int     `json:"comment_count"`
	TotalLikes   int     `json:"total_likes"`
	AverageLikes float64 `json:"average_likes"`
}

// WordCount is one entry of the theme extraction, ordered by frequency
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// CommentFrequency holds the full hourly and daily bucket tables
type CommentFrequency struct {
	Hourly map[int]int    `json:"hourly"`
	Daily  map[string]int `json:"daily"`
}

// MetricsBundle is the complete analysis result returned to callers. All
// fields are present even for empty input, and every value is a native
// primitive so the bundle serializes to JSON without custom codecs.
type MetricsBundle struct {
	TotalComments          int            `json:"total_comments"`
	UniqueAuthors          int            `json:"unique_authors"`
	TotalLikes             int            `json:"total_likes"`
	AverageLikesPerComment float64        `json:"average_likes_per_comment"`
	EngagementRate         float64        `json:"engagement_rate"`
	SentimentDistribution  map[string]int `json:"sentiment_distribution"`
	AverageSentimentScore  float64        `json:"average_sentiment_score"`

	TopPositiveComments []RankedComment `json:"top_positive_comments"`
	TopNegativeComments []RankedComment `json:"top_negative_comments"`
	MostLikedComments   []RankedComment `json:"most_liked_comments"`

	PeakHours        map[int]int      `json:"peak_hours"`
	PeakDays         map[string]int   `json:"peak_days"`
	CommentFrequency CommentFrequency `json:"comment_frequency"`

	TopContributors []Contributor `json:"top_contributors"`
	CommonThemes    []WordCount   `json:"common_themes"`

	SummaryParagraph string   `json:"summary_paragraph"`
	Visualizations   []string `json:"visualizations"`

	Quality          ResultQuality `json:"result_quality"`
	PartialResults   bool          `json:"partial_results,omitempty"`
	CommentsAnalyzed int           `json:"comments_analyzed,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// AnalysisRequest is the inbound request tuple for one analysis
type AnalysisRequest struct {
	VideoID     string `json:"video_id"`
	DaysBack    int    `json:"days_back"`
	MaxComments int    `json:"max_comments"`
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Validate checks the request bounds and applies defaults for omitted fields
func (r *AnalysisRequest) Validate() error {
	if !videoIDPattern.MatchString(r.VideoID) {
		return fmt.Errorf("invalid video ID format: %q", r.VideoID)
	}
	if r.DaysBack == 0 {
		r.DaysBack = 7
	}
	if r.DaysBack < 1 || r.DaysBack > 30 {
		return fmt.Errorf("days_back must be between 1 and 30, got %d", r.DaysBack)
	}
	if r.MaxComments == 0 {
		r.MaxComments = 1000
	}
	if r.MaxComments < 1 || r.MaxComments > 10000 {
		return fmt.Errorf("max_comments must be between 1 and 10000, got %d", r.MaxComments)
	}
	return nil
}

// CacheKey derives the idempotent cache key for this request
func (r *AnalysisRequest) CacheKey() string {
	return fmt.Sprintf("%s_%d_%d", r.VideoID, r.DaysBack, r.MaxComments)
}

// AnalysisResponse wraps a bundle for the HTTP layer
type AnalysisResponse struct {
	VideoID        string         `json:"video_id"`
	Results        *MetricsBundle `json:"analysis_results"`
	Summary        string         `json:"summary"`
	Visualizations []string       `json:"visualizations"`
	Cached         bool           `json:"cached"`
	Timestamp      time.Time      `json:"timestamp"`
	ProcessingTime float64        `json:"processing_time"`
}
