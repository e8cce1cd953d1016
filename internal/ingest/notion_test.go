package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/internal/store"
)

// fakeNotionClient pages through canned responses.
type fakeNotionClient struct {
	pages   []*notionapi.DatabaseQueryResponse
	queries []notionapi.Cursor
}

func (f *fakeNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queries = append(f.queries, req.StartCursor)
	resp := f.pages[0]
	f.pages = f.pages[1:]
	return resp, nil
}

func titleProp(text string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: text}}}
}

func signalPage(title, url, summary string) notionapi.Page {
	props := notionapi.Properties{
		"Name": titleProp(title),
		"URL":  &notionapi.URLProperty{URL: url},
	}
	if summary != "" {
		props["Summary"] = &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: summary}}}
	}
	return notionapi.Page{Properties: props, CreatedTime: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
}

func TestNotionSource_FetchPaginates(t *testing.T) {
	client := &fakeNotionClient{pages: []*notionapi.DatabaseQueryResponse{
		{
			Results:    []notionapi.Page{signalPage("CfD auction", "https://news.example/cfd", "strike prices up")},
			HasMore:    true,
			NextCursor: "cursor-2",
		},
		{
			Results: []notionapi.Page{
				signalPage("EPBD recast", "https://news.example/epbd", ""),
				signalPage("no url page", "", ""),
			},
		},
	}}

	src := NewNotionSource(client, "db-1")
	signals, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, signals, 2) // page without URL is dropped
	assert.Equal(t, "CfD auction", signals[0].Title)
	assert.Equal(t, "strike prices up", signals[0].Summary)
	assert.Equal(t, "notion", signals[0].Source)
	require.NotNil(t, signals[0].PublishedAt)

	require.Len(t, client.queries, 2)
	assert.Equal(t, notionapi.Cursor(""), client.queries[0])
	assert.Equal(t, notionapi.Cursor("cursor-2"), client.queries[1])
}

// countingStore wraps the dedup behavior the ingestor relies on.
type countingStore struct {
	store.Store
	seen map[string]bool
}

func (c *countingStore) InsertSignal(ctx context.Context, s *model.Signal) (bool, error) {
	if c.seen[s.URL] {
		return false, nil
	}
	c.seen[s.URL] = true
	return true, nil
}

type staticSource struct{ signals []model.Signal }

func (s *staticSource) Name() string                                  { return "static" }
func (s *staticSource) Fetch(context.Context) ([]model.Signal, error) { return s.signals, nil }

func TestIngestor_SyncIdempotent(t *testing.T) {
	st := &countingStore{seen: map[string]bool{}}
	ing := NewIngestor(st)
	src := &staticSource{signals: []model.Signal{
		{Title: "a", URL: "https://a.example"},
		{Title: "b", URL: "https://b.example"},
	}}

	res, err := ing.Sync(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.Skipped)

	res, err = ing.Sync(context.Background(), src)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
}
