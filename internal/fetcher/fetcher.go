package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Terminal upstream conditions. Neither is retried.
var (
	// ErrQuotaExceeded indicates the API quota is exhausted
	ErrQuotaExceeded = errors.New("youtube API quota exceeded")
	// ErrVideoNotFound indicates the video does not exist or has comments disabled
	ErrVideoNotFound = errors.New("video not found or comments are disabled")
)

// Client fetches top-level comments for a video with pagination, time-window
// filtering and budget enforcement
type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client

	// Etiquette delay between successful pages. Shorter for the first few
	// pages, longer afterwards; never zero while pages remain.
	earlyPageDelay time.Duration
	latePageDelay  time.Duration
	// Fallback retry delay when the upstream omits Retry-After
	defaultRetryDelay time.Duration
}

type commentThreadsResponse struct {
	Items         []commentThread `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type commentThread struct {
	ID      string `json:"id"`
	Snippet struct {
		TopLevelComment *struct {
			Snippet *commentSnippet `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type commentSnippet struct {
	AuthorDisplayName string `json:"authorDisplayName"`
	TextDisplay       string `json:"textDisplay"`
	PublishedAt       string `json:"publishedAt"`
	UpdatedAt         string `json:"updatedAt"`
	LikeCount         int    `json:"likeCount"`
}

// NewClient creates a new comment fetch client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "CommentPulse/1.0"),
		earlyPageDelay:    300 * time.Millisecond,
		latePageDelay:     500 * time.Millisecond,
		defaultRetryDelay: 5 * time.Second,
	}
}

// FetchComments walks commentThreads pages for videoID and returns the
// comments published within [startTime, endTime], bounded by maxPages page
// requests and earlyStopCount accumulated comments. The caller's context
// deadline bounds the overall wall-clock spent, including retry sleeps.
//
// On a terminal condition (ErrQuotaExceeded, ErrVideoNotFound) the error is
// returned immediately. On any other failure, comments accumulated so far
// are returned alongside the error so the caller can degrade to a partial
// analysis; with nothing accumulated the failure propagates.
func (c *Client) FetchComments(
	ctx context.Context,
	videoID string,
	startTime, endTime time.Time,
	pageSize, maxPages, earlyStopCount int,
) (models.CommentBatch, error) {
	var batch models.CommentBatch
	pageToken := ""
	pageCount := 0

	logrus.Infof("Starting comment fetch for video %s", videoID)
	fetchStart := time.Now()

	for {
		if pageCount >= maxPages {
			logrus.Infof("Reached maximum page limit (%d)", maxPages)
			break
		}
		if len(batch) >= earlyStopCount {
			logrus.Infof("Reached early stop count (%d comments)", earlyStopCount)
			break
		}

		pageCount++

		body, err := c.requestPage(ctx, videoID, pageToken, pageSize)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrVideoNotFound) {
				return batch, err
			}
			if len(batch) > 0 {
				logrus.Warnf("Returning %d comments collected before error: %v", len(batch), err)
				return batch, err
			}
			return nil, fmt.Errorf("fetching comments for video %s: %w", videoID, err)
		}

		if len(body) == 0 {
			logrus.Warnf("Empty response received for video %s", videoID)
			break
		}

		var page commentThreadsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			logrus.Errorf("Failed to parse comments response: %v", err)
			if len(batch) > 0 {
				return batch, fmt.Errorf("parsing page %d: %w", pageCount, err)
			}
			return nil, fmt.Errorf("parsing comments response: %w", err)
		}

		logrus.Infof("Received %d comments on page %d", len(page.Items), pageCount)

		for _, item := range page.Items {
			if len(batch) >= earlyStopCount {
				break
			}
			comment, err := parseComment(item)
			if err != nil {
				logrus.Warnf("Skipping comment %s: %v", item.ID, err)
				continue
			}
			if comment.PublishedAt.Before(startTime) || comment.PublishedAt.After(endTime) {
				continue
			}
			batch = append(batch, comment)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}

		if err := c.pagePause(ctx, pageCount); err != nil {
			return batch, err
		}
	}

	logrus.Infof("Completed fetching %d comments for video %s in %.2fs",
		len(batch), videoID, time.Since(fetchStart).Seconds())
	return batch, nil
}

// requestPage issues one commentThreads request, retrying the same page on
// 429 and 5xx responses. Retries never advance the caller's page counter.
func (c *Client) requestPage(ctx context.Context, videoID, pageToken string, pageSize int) ([]byte, error) {
	for {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":        c.apiKey,
				"videoId":    videoID,
				"part":       "snippet",
				"maxResults": strconv.Itoa(pageSize),
				"order":      "time",
			})
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		resp, err := req.Get(c.baseURL + "/commentThreads")
		if err != nil {
			return nil, err
		}

		status := resp.StatusCode()
		switch {
		case status == 429 || status >= 500:
			delay := c.retryDelay(resp.Header().Get("Retry-After"))
			logrus.Warnf("Rate limited or server error (status %d), waiting %v", status, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			continue
		case status == 403 && strings.Contains(string(resp.Body()), "quotaExceeded"):
			return nil, ErrQuotaExceeded
		case status == 403 || status == 404:
			return nil, fmt.Errorf("%w: video %s (status %d)", ErrVideoNotFound, videoID, status)
		case status != 200:
			return nil, fmt.Errorf("comments API returned status %d: %s", status, resp.Body())
		}

		return resp.Body(), nil
	}
}

func (c *Client) retryDelay(header string) time.Duration {
	if header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.defaultRetryDelay
}

func (c *Client) pagePause(ctx context.Context, pageCount int) error {
	delay := c.latePageDelay
	if pageCount <= 3 {
		delay = c.earlyPageDelay
	}
	return sleepCtx(ctx, delay)
}

func parseComment(item commentThread) (models.Comment, error) {
	top := item.Snippet.TopLevelComment
	if top == nil || top.Snippet == nil {
		return models.Comment{}, fmt.Errorf("missing topLevelComment snippet")
	}

	snippet := top.Snippet
	if snippet.PublishedAt == "" {
		return models.Comment{}, fmt.Errorf("missing publishedAt")
	}

	publishedAt, err := time.Parse(time.RFC3339, snippet.PublishedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("unparseable publishedAt %q: %w", snippet.PublishedAt, err)
	}

	updatedAt := publishedAt
	if snippet.UpdatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, snippet.UpdatedAt); err == nil {
			updatedAt = parsed
		}
	}

	return models.Comment{
		Author:      snippet.AuthorDisplayName,
		Text:        snippet.TextDisplay,
		PublishedAt: publishedAt.UTC(),
		UpdatedAt:   updatedAt.UTC(),
		LikeCount:   snippet.LikeCount,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
