package analyzer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/commentpulse/comment-pulse/internal/models"
)

// GenerateSummary builds the two-part textual report from already-computed
// metrics. Pure formatting: no new computation, and absent sections fall
// back to documented defaults instead of failing.
func GenerateSummary(bundle *models.MetricsBundle) string {
	peakDay := peakDayName(bundle.PeakDays)
	peakHour := peakHourValue(bundle.PeakHours)

	topContributor := models.Contributor{Author: "N/A"}
	if len(bundle.TopContributors) > 0 {
		topContributor = bundle.TopContributors[0]
	}

	topWords := make([]string, 0, 5)
	for i := 0; i < len(bundle.CommonThemes) && i < 5; i++ {
		topWords = append(topWords, bundle.CommonThemes[i].Word)
	}
	themes := strings.Join(topWords, ", ")
	if themes == "" {
		themes = "no recurring topics"
	}

	concise := fmt.Sprintf(`Quick Summary:
The video has generated significant engagement with %s comments from %s unique viewers, accumulating %s total likes. The community shows a balanced sentiment distribution with %s positive, %s neutral, and %s negative comments. Engagement peaks on %ss at %d:00, with the most active contributor %s receiving %s likes. The discussion primarily revolves around topics related to %s.`,
		groupInt(bundle.TotalComments),
		groupInt(bundle.UniqueAuthors),
		groupInt(bundle.TotalLikes),
		groupInt(bundle.SentimentDistribution["Positive"]),
		groupInt(bundle.SentimentDistribution["Neutral"]),
		groupInt(bundle.SentimentDistribution["Negative"]),
		peakDay, peakHour,
		topContributor.Author,
		groupInt(topContributor.TotalLikes),
		themes,
	)

	detailed := fmt.Sprintf(`

Detailed Analysis
================

Engagement Overview:
------------------
- Total Comments: %s
- Unique Viewers: %s
- Total Likes: %s
- Average Likes per Comment: %.1f

Sentiment Analysis:
-----------------
- Positive Comments: %s
- Neutral Comments: %s
- Negative Comments: %s
- Overall Sentiment Score: %.2f

Peak Engagement:
--------------
- Most Active Day: %s
- Peak Hour: %d:00

Top Contributor:
--------------
- Author: %s
- Total Likes: %s
- Comments: %s

Common Themes:
------------
- Top Keywords: %s

Note: This analysis is based on %s comments collected from the video.
`,
		groupInt(bundle.TotalComments),
		groupInt(bundle.UniqueAuthors),
		groupInt(bundle.TotalLikes),
		bundle.AverageLikesPerComment,
		groupInt(bundle.SentimentDistribution["Positive"]),
		groupInt(bundle.SentimentDistribution["Neutral"]),
		groupInt(bundle.SentimentDistribution["Negative"]),
		bundle.AverageSentimentScore,
		peakDay, peakHour,
		topContributor.Author,
		groupInt(topContributor.TotalLikes),
		groupInt(topContributor.CommentCount),
		themes,
		groupInt(bundle.TotalComments),
	)

	return concise + detailed
}

func peakDayName(peakDays map[string]int) string {
	best, bestCount := "N/A", -1
	days := make([]string, 0, len(peakDays))
	for d := range peakDays {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		if peakDays[d] > bestCount {
			best, bestCount = d, peakDays[d]
		}
	}
	return best
}

func peakHourValue(peakHours map[int]int) int {
	best, bestCount := 0, -1
	hours := make([]int, 0, len(peakHours))
	for h := range peakHours {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		if peakHours[h] > bestCount {
			best, bestCount = h, peakHours[h]
		}
	}
	return best
}

// groupInt renders n with thousands separators (1234567 -> "1,234,567")
func groupInt(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
