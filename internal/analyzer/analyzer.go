package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/jonreiter/govader"
)

// Sentiment classification thresholds on the VADER compound score
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

const topCommentCount = 5
const topContributorCount = 5
const topThemeCount = 20
const peakBucketCount = 3

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Analyzer computes the metrics bundle for a batch of comments
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// New creates an analyzer with a fresh sentiment model. The model is
// read-only after construction and safe to share across invocations.
func New() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

type scoredComment struct {
	models.Comment
	compound float64
	class    string
}

// EmptyBundle returns the fully-defaulted zero bundle: every field present,
// all three sentiment keys at zero, non-empty summary
func EmptyBundle(quality models.ResultQuality, summary, errMarker string) *models.MetricsBundle {
	return &models.MetricsBundle{
		SentimentDistribution: map[string]int{"Positive": 0, "Neutral": 0, "Negative": 0},
		TopPositiveComments:   []models.RankedComment{},
		TopNegativeComments:   []models.RankedComment{},
		MostLikedComments:     []models.RankedComment{},
		PeakHours:             map[int]int{},
		PeakDays:              map[string]int{},
		CommentFrequency: models.CommentFrequency{
			Hourly: map[int]int{},
			Daily:  map[string]int{},
		},
		TopContributors:  []models.Contributor{},
		CommonThemes:     []models.WordCount{},
		SummaryParagraph: summary,
		Visualizations:   []string{},
		Quality:          quality,
		Error:            errMarker,
	}
}

// Analyze computes the full metrics bundle over one batch
func (a *Analyzer) Analyze(batch models.CommentBatch) *models.MetricsBundle {
	// A legitimately empty batch is a non-error terminal state: Quality is
	// Empty and the Error marker stays blank. Failure bundles carry a
	// non-empty Error, so callers can tell the two apart without reading
	// the summary prose.
	if len(batch) == 0 {
		return EmptyBundle(
			models.QualityEmpty,
			"No comments found for analysis. The video might have comments disabled, or there may be no comments yet.",
			"",
		)
	}

	bundle := EmptyBundle(models.QualityComplete, "", "")

	authors := make(map[string]struct{})
	totalLikes := 0
	for _, c := range batch {
		authors[c.Author] = struct{}{}
		totalLikes += c.LikeCount
	}

	bundle.TotalComments = len(batch)
	bundle.UniqueAuthors = len(authors)
	bundle.TotalLikes = totalLikes
	bundle.AverageLikesPerComment = float64(totalLikes) / float64(len(batch))
	bundle.EngagementRate = float64(totalLikes) / float64(len(batch))

	scored := a.scoreSentiment(batch)
	compoundSum := 0.0
	for _, s := range scored {
		bundle.SentimentDistribution[s.class]++
		compoundSum += s.compound
	}
	bundle.AverageSentimentScore = compoundSum / float64(len(scored))

	bundle.TopPositiveComments = topByCompound(scored, false)
	bundle.TopNegativeComments = topByCompound(scored, true)
	bundle.MostLikedComments = topByLikes(scored)

	a.analyzeTiming(batch, bundle)
	bundle.TopContributors = topContributors(batch)
	bundle.CommonThemes = commonThemes(batch)
	bundle.SummaryParagraph = GenerateSummary(bundle)

	return bundle
}

func (a *Analyzer) scoreSentiment(batch models.CommentBatch) []scoredComment {
	scored := make([]scoredComment, 0, len(batch))
	for _, c := range batch {
		compound := a.sia.PolarityScores(c.Text).Compound
		class := "Neutral"
		switch {
		case compound >= positiveThreshold:
			class = "Positive"
		case compound <= negativeThreshold:
			class = "Negative"
		}
		scored = append(scored, scoredComment{Comment: c, compound: compound, class: class})
	}
	return scored
}

// Ties keep upstream arrival order: all rankings use a stable sort over the
// batch as delivered.
func topByCompound(scored []scoredComment, ascending bool) []models.RankedComment {
	ranked := make([]scoredComment, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return ranked[i].compound < ranked[j].compound
		}
		return ranked[i].compound > ranked[j].compound
	})

	out := make([]models.RankedComment, 0, topCommentCount)
	for i := 0; i < len(ranked) && i < topCommentCount; i++ {
		out = append(out, models.RankedComment{
			Author:    ranked[i].Author,
			Text:      ranked[i].Text,
			LikeCount: ranked[i].LikeCount,
			Score:     ranked[i].compound,
		})
	}
	return out
}

func topByLikes(scored []scoredComment) []models.RankedComment {
	ranked := make([]scoredComment, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LikeCount > ranked[j].LikeCount
	})

	out := make([]models.RankedComment, 0, topCommentCount)
	for i := 0; i < len(ranked) && i < topCommentCount; i++ {
		out = append(out, models.RankedComment{
			Author:    ranked[i].Author,
			Text:      ranked[i].Text,
			LikeCount: ranked[i].LikeCount,
			Score:     float64(ranked[i].LikeCount),
		})
	}
	return out
}

func (a *Analyzer) analyzeTiming(batch models.CommentBatch, bundle *models.MetricsBundle) {
	for _, c := range batch {
		ts := c.PublishedAt.UTC()
		bundle.CommentFrequency.Hourly[ts.Hour()]++
		bundle.CommentFrequency.Daily[ts.Weekday().String()]++
	}

	bundle.PeakHours = topHourBuckets(bundle.CommentFrequency.Hourly)
	bundle.PeakDays = topDayBuckets(bundle.CommentFrequency.Daily)
}

// Peak buckets break count ties by bucket value ascending so the top-3 set
// is deterministic.
func topHourBuckets(freq map[int]int) map[int]int {
	hours := make([]int, 0, len(freq))
	for h := range freq {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if freq[hours[i]] != freq[hours[j]] {
			return freq[hours[i]] > freq[hours[j]]
		}
		return hours[i] < hours[j]
	})

	top := map[int]int{}
	for i := 0; i < len(hours) && i < peakBucketCount; i++ {
		top[hours[i]] = freq[hours[i]]
	}
	return top
}

func topDayBuckets(freq map[string]int) map[string]int {
	days := make([]string, 0, len(freq))
	for d := range freq {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		if freq[days[i]] != freq[days[j]] {
			return freq[days[i]] > freq[days[j]]
		}
		return days[i] < days[j]
	})

	top := map[string]int{}
	for i := 0; i < len(days) && i < peakBucketCount; i++ {
		top[days[i]] = freq[days[i]]
	}
	return top
}

func topContributors(batch models.CommentBatch) []models.Contributor {
	byAuthor := make(map[string]*models.Contributor)
	order := make([]string, 0)

	for _, c := range batch {
		stats, ok := byAuthor[c.Author]
		if !ok {
			stats = &models.Contributor{Author: c.Author}
			byAuthor[c.Author] = stats
			order = append(order, c.Author)
		}
		stats.CommentCount++
		stats.TotalLikes += c.LikeCount
	}

	// First-appearance order makes the like-count tie-break deterministic
	sort.SliceStable(order, func(i, j int) bool {
		return byAuthor[order[i]].TotalLikes > byAuthor[order[j]].TotalLikes
	})

	out := make([]models.Contributor, 0, topContributorCount)
	for i := 0; i < len(order) && i < topContributorCount; i++ {
		stats := byAuthor[order[i]]
		stats.AverageLikes = float64(stats.TotalLikes) / float64(stats.CommentCount)
		out = append(out, *stats)
	}
	return out
}

func commonThemes(batch models.CommentBatch) []models.WordCount {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, c := range batch {
		for _, word := range wordPattern.FindAllString(strings.ToLower(c.Text), -1) {
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	out := make([]models.WordCount, 0, topThemeCount)
	for i := 0; i < len(order) && i < topThemeCount; i++ {
		out = append(out, models.WordCount{Word: order[i], Count: counts[order[i]]})
	}
	return out
}
