package ingest

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tpeters15/theme-score-nexus/internal/model"
	"github.com/tpeters15/theme-score-nexus/pkg/notion"
)

// SignalSource produces signals from an external system.
type SignalSource interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Signal, error)
}

// NotionSource reads market signals from a Notion database. Expected
// properties: "Name" (title), "URL" (url), "Summary" (rich text),
// "Published" (date). Missing properties degrade to empty fields; pages
// without a URL are skipped because URL is the dedup key.
type NotionSource struct {
	client notion.Client
	dbID   string
}

// NewNotionSource creates a NotionSource for the given database.
func NewNotionSource(client notion.Client, dbID string) *NotionSource {
	return &NotionSource{client: client, dbID: dbID}
}

func (s *NotionSource) Name() string { return "notion" }

// Fetch pages through the whole database.
func (s *NotionSource) Fetch(ctx context.Context) ([]model.Signal, error) {
	var signals []model.Signal
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := s.client.QueryDatabase(ctx, s.dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: query notion signals")
		}

		for _, page := range resp.Results {
			sig, ok := signalFromPage(page)
			if !ok {
				zap.L().Debug("ingest: skipping notion page without url",
					zap.String("page_id", page.ID.String()))
				continue
			}
			signals = append(signals, sig)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return signals, nil
}

func signalFromPage(page notionapi.Page) (model.Signal, bool) {
	sig := model.Signal{Source: "notion"}

	for name, prop := range page.Properties {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			sig.Title = plainText(p.Title)
		case *notionapi.URLProperty:
			sig.URL = p.URL
		case *notionapi.RichTextProperty:
			if name == "Summary" {
				sig.Summary = plainText(p.RichText)
			}
		case *notionapi.DateProperty:
			if p.Date != nil && p.Date.Start != nil {
				t := time.Time(*p.Date.Start)
				sig.PublishedAt = &t
			}
		}
	}

	if sig.PublishedAt == nil && !page.CreatedTime.IsZero() {
		created := page.CreatedTime
		sig.PublishedAt = &created
	}
	if sig.URL == "" {
		return model.Signal{}, false
	}
	if sig.Title == "" {
		sig.Title = sig.URL
	}
	return sig, true
}

func plainText(rts []notionapi.RichText) string {
	var out string
	for _, rt := range rts {
		out += rt.PlainText
	}
	return out
}
