package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient("test-key")
	c.baseURL = baseURL
	c.earlyPageDelay = time.Millisecond
	c.latePageDelay = time.Millisecond
	c.defaultRetryDelay = time.Millisecond
	return c
}

func commentItem(author, text, publishedAt string, likeCount int) map[string]interface{} {
	return map[string]interface{}{
		"id": fmt.Sprintf("thread-%s", author),
		"snippet": map[string]interface{}{
			"topLevelComment": map[string]interface{}{
				"snippet": map[string]interface{}{
					"authorDisplayName": author,
					"textDisplay":       text,
					"publishedAt":       publishedAt,
					"likeCount":         likeCount,
				},
			},
		},
	}
}

func pageBody(t *testing.T, nextToken string, items ...map[string]interface{}) []byte {
	t.Helper()
	page := map[string]interface{}{"items": items}
	if nextToken != "" {
		page["nextPageToken"] = nextToken
	}
	data, err := json.Marshal(page)
	require.NoError(t, err)
	return data
}

// pageServer serves a fixed sequence of responses and counts requests
type pageServer struct {
	responses []func(w http.ResponseWriter)
	requests  int
	tokens    []string
}

func (ps *pageServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps.tokens = append(ps.tokens, r.URL.Query().Get("pageToken"))
		idx := ps.requests
		ps.requests++
		if idx >= len(ps.responses) {
			http.Error(w, "unexpected request", http.StatusInternalServerError)
			return
		}
		ps.responses[idx](w)
	}
}

func jsonResponse(body []byte) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

var window = struct {
	start, end time.Time
}{
	start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
}

func TestFetchComments_TwoPages(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "token-2",
			commentItem("alice", "first", "2024-03-02T10:00:00Z", 3),
			commentItem("bob", "second", "2024-03-02T11:00:00Z", 1),
		)),
		jsonResponse(pageBody(t, "",
			commentItem("carol", "third", "2024-03-03T12:00:00Z", 0),
			commentItem("dave", "fourth", "2024-03-03T13:00:00Z", 7),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	require.NoError(t, err)
	assert.Len(t, batch, 4)
	assert.Equal(t, 2, ps.requests)
	assert.Equal(t, []string{"", "token-2"}, ps.tokens)
	assert.Equal(t, "alice", batch[0].Author)
	assert.Equal(t, "dave", batch[3].Author)
}

func TestFetchComments_StopsWithoutContinuationToken(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "",
			commentItem("alice", "only", "2024-03-02T10:00:00Z", 0),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 10, 1000)

	require.NoError(t, err)
	assert.Len(t, batch, 1)
	assert.Equal(t, 1, ps.requests)
}

func TestFetchComments_MaxPagesWithEndlessTokens(t *testing.T) {
	// Upstream always promises another page; only maxPages stops the loop
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(pageBody(t, "more",
			commentItem("alice", "again", "2024-03-02T10:00:00Z", 0),
		))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	require.NoError(t, err)
	assert.Equal(t, 3, requests)
	assert.Len(t, batch, 3)
}

func TestFetchComments_EarlyStopCountNeverExceeded(t *testing.T) {
	items := make([]map[string]interface{}, 10)
	for i := range items {
		items[i] = commentItem(fmt.Sprintf("user%d", i), "text",
			"2024-03-02T10:00:00Z", 0)
	}
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "token-2", items...)),
		jsonResponse(pageBody(t, "", items...)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 10, 10, 7)

	require.NoError(t, err)
	assert.Len(t, batch, 7)
	assert.Equal(t, 1, ps.requests)
}

func TestFetchComments_TimeWindowBoundaries(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "",
			commentItem("at-start", "kept", "2024-03-01T00:00:00Z", 0),
			commentItem("at-end", "kept", "2024-03-08T00:00:00Z", 0),
			commentItem("before-start", "dropped", "2024-02-29T23:59:59Z", 0),
			commentItem("after-end", "dropped", "2024-03-08T00:00:01Z", 0),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "at-start", batch[0].Author)
	assert.Equal(t, "at-end", batch[1].Author)
}

func TestFetchComments_MissingFields(t *testing.T) {
	missingLikes := commentItem("no-likes", "text", "2024-03-02T10:00:00Z", 0)
	delete(missingLikes["snippet"].(map[string]interface{})["topLevelComment"].(map[string]interface{})["snippet"].(map[string]interface{}), "likeCount")

	missingSnippet := map[string]interface{}{
		"id":      "broken",
		"snippet": map[string]interface{}{},
	}

	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "",
			missingLikes,
			missingSnippet,
			commentItem("fine", "text", "2024-03-02T11:00:00Z", 2),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "no-likes", batch[0].Author)
	assert.Equal(t, 0, batch[0].LikeCount)
	assert.Equal(t, "fine", batch[1].Author)
}

func TestFetchComments_UpdatedAtDefaultsToPublishedAt(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "",
			commentItem("alice", "text", "2024-03-02T10:00:00Z", 0),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, batch[0].PublishedAt, batch[0].UpdatedAt)
}

func TestFetchComments_RetryAfter429(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		},
		jsonResponse(pageBody(t, "",
			commentItem("alice", "text", "2024-03-02T10:00:00Z", 1),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	// maxPages of 1: the retried request must not consume the page budget
	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 1, 1000)

	require.NoError(t, err)
	assert.Len(t, batch, 1)
	assert.Equal(t, 2, ps.requests)
}

func TestFetchComments_ServerErrorRetried(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) { w.WriteHeader(http.StatusServiceUnavailable) },
		jsonResponse(pageBody(t, "",
			commentItem("alice", "text", "2024-03-02T10:00:00Z", 1),
		)),
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 1, 1000)

	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestFetchComments_QuotaExceededTerminal(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"errors":[{"reason":"quotaExceeded"}]}}`))
		},
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, batch)
	assert.Equal(t, 1, ps.requests)
}

func TestFetchComments_NotFoundTerminal(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) },
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	assert.ErrorIs(t, err, ErrVideoNotFound)
	assert.Empty(t, batch)
	assert.Equal(t, 1, ps.requests)
}

func TestFetchComments_CommentsDisabledTerminal(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"errors":[{"reason":"commentsDisabled"}]}}`))
		},
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestFetchComments_MalformedSecondPageReturnsPartial(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		jsonResponse(pageBody(t, "token-2",
			commentItem("alice", "first", "2024-03-02T10:00:00Z", 1),
			commentItem("bob", "second", "2024-03-02T11:00:00Z", 2),
		)),
		func(w http.ResponseWriter) { w.Write([]byte("{not json")) },
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	assert.Error(t, err)
	assert.Len(t, batch, 2)
}

func TestFetchComments_MalformedFirstPagePropagates(t *testing.T) {
	ps := &pageServer{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) { w.Write([]byte("{not json")) },
	}}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := newTestClient(server.URL)
	batch, err := client.FetchComments(context.Background(), "video123xyz",
		window.start, window.end, 100, 3, 1000)

	assert.Error(t, err)
	assert.Empty(t, batch)
}

func TestFetchComments_ContextCancelledDuringRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.defaultRetryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchComments(ctx, "video123xyz",
		window.start, window.end, 100, 3, 1000)
	assert.Error(t, err)
}
