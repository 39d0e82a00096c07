package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wibucomic/backend/internal/models"
)

// Message is the payload delivered when a watched comic changes.
type Message struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Context map[string]any `json:"context,omitempty"`
}

// NewChapterMessage describes a release the poller detected.
func NewChapterMessage(comic models.Comic, chapter float64) Message {
	return Message{
		Title: fmt.Sprintf("New chapter of %s", comic.Title),
		Body:  fmt.Sprintf("Chapter %g of %s is out on %s.", chapter, comic.Title, comic.SourceKey),
		Context: map[string]any{
			"comicId":  comic.ID,
			"source":   comic.SourceKey,
			"sourceId": comic.SourceMangaID,
			"chapter":  chapter,
			"detected": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

// NoopNotifier drops messages; used when no delivery channel is configured.
type NoopNotifier struct{}

func (n NoopNotifier) Notify(_ context.Context, _ Message) error {
	return nil
}

// LogNotifier writes messages to the application log, so release detection
// is visible even without a webhook.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, message Message) error {
	l.logger.Info("notification", "title", message.Title, "body", message.Body)
	return nil
}

// WebhookNotifier POSTs messages as JSON to one configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &WebhookNotifier{
		url: trimmed,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}

	return nil
}

// MultiNotifier fans one message out to several channels, stopping at the
// first failure.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(items ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(items))
	for _, item := range items {
		if item != nil {
			filtered = append(filtered, item)
		}
	}
	return &MultiNotifier{notifiers: filtered}
}

func (m *MultiNotifier) Notify(ctx context.Context, message Message) error {
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, message); err != nil {
			return err
		}
	}
	return nil
}
