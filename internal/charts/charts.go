package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
)

// Renderer writes chart PNGs for a finished analysis. Rendering is strictly
// best-effort: a failed chart is logged and skipped, and only files that
// were actually written are reported back.
type Renderer struct {
	outputDir string
}

// NewRenderer creates a renderer writing under outputDir
func NewRenderer(outputDir string) *Renderer {
	if outputDir == "" {
		outputDir = "."
	}
	return &Renderer{outputDir: outputDir}
}

// Render produces the sentiment pie, engagement-over-time and hourly
// activity charts for one analysis and returns the relative paths written
func (r *Renderer) Render(batch models.CommentBatch, bundle *models.MetricsBundle, videoID string) []string {
	dir := filepath.Join(r.outputDir, fmt.Sprintf("analysis_%s", videoID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logrus.Errorf("Failed to create chart directory %s: %v", dir, err)
		return []string{}
	}

	written := []string{}

	if err := r.renderSentimentPie(bundle, filepath.Join(dir, "sentiment_distribution.png")); err != nil {
		logrus.Errorf("Failed to render sentiment chart: %v", err)
	} else {
		written = append(written, fmt.Sprintf("/analysis/analysis_%s/sentiment_distribution.png", videoID))
	}

	if err := r.renderEngagementOverTime(batch, filepath.Join(dir, "engagement_over_time.png")); err != nil {
		logrus.Errorf("Failed to render engagement chart: %v", err)
	} else {
		written = append(written, fmt.Sprintf("/analysis/analysis_%s/engagement_over_time.png", videoID))
	}

	if err := r.renderHourlyActivity(bundle, filepath.Join(dir, "hourly_activity.png")); err != nil {
		logrus.Errorf("Failed to render activity chart: %v", err)
	} else {
		written = append(written, fmt.Sprintf("/analysis/analysis_%s/hourly_activity.png", videoID))
	}

	return written
}

func (r *Renderer) renderSentimentPie(bundle *models.MetricsBundle, path string) error {
	values := make([]chart.Value, 0, 3)
	for _, class := range []string{"Positive", "Neutral", "Negative"} {
		if count := bundle.SentimentDistribution[class]; count > 0 {
			values = append(values, chart.Value{
				Value: float64(count),
				Label: fmt.Sprintf("%s (%d)", class, count),
			})
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("no sentiment data to chart")
	}

	pie := chart.PieChart{
		Title:  "Comment Sentiment Distribution",
		Width:  512,
		Height: 512,
		Values: values,
	}
	return renderToFile(path, pie.Render)
}

func (r *Renderer) renderEngagementOverTime(batch models.CommentBatch, path string) error {
	likesPerDay := make(map[time.Time]float64)
	for _, c := range batch {
		day := c.PublishedAt.UTC().Truncate(24 * time.Hour)
		likesPerDay[day] += float64(c.LikeCount)
	}
	if len(likesPerDay) < 2 {
		return fmt.Errorf("need at least two days of data, have %d", len(likesPerDay))
	}

	days := make([]time.Time, 0, len(likesPerDay))
	for day := range likesPerDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	likes := make([]float64, len(days))
	for i, day := range days {
		likes[i] = likesPerDay[day]
	}

	graph := chart.Chart{
		Title:  "Comment Engagement Over Time",
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Total Likes",
				XValues: days,
				YValues: likes,
			},
		},
	}
	return renderToFile(path, graph.Render)
}

func (r *Renderer) renderHourlyActivity(bundle *models.MetricsBundle, path string) error {
	hours := make([]int, 0, len(bundle.CommentFrequency.Hourly))
	for hour := range bundle.CommentFrequency.Hourly {
		hours = append(hours, hour)
	}
	if len(hours) == 0 {
		return fmt.Errorf("no hourly data to chart")
	}
	sort.Ints(hours)

	bars := make([]chart.Value, 0, len(hours))
	for _, hour := range hours {
		bars = append(bars, chart.Value{
			Value: float64(bundle.CommentFrequency.Hourly[hour]),
			Label: strconv.Itoa(hour),
		})
	}

	graph := chart.BarChart{
		Title:    "Comment Activity by Hour (UTC)",
		Width:    800,
		Height:   400,
		BarWidth: 20,
		Bars:     bars,
	}
	return renderToFile(path, graph.Render)
}

func renderToFile(path string, render func(chart.RendererProvider, io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return render(chart.PNG, f)
}
