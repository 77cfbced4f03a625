package notification

import (
	"context"
	"log/slog"
	"time"
)

// WebhookNotifier POSTs alerts as JSON. Trade and daily-limit alerts carry
// their structured event so receivers need not parse the message.
type WebhookNotifier struct {
	url string
	p   poster
	now func() time.Time
}

// webhookPayload is the body posted for every alert.
type webhookPayload struct {
	Level   AlertLevel `json:"level"`
	Kind    AlertKind  `json:"kind,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Symbol  string     `json:"symbol,omitempty"`
	Trade   *TradeInfo `json:"trade,omitempty"`
	Limit   *LimitInfo `json:"limit,omitempty"`
	TS      string     `json:"ts"`
}

// NewWebhookNotifier creates a webhook notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, p: newPoster("webhook"), now: time.Now}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := webhookPayload{
		Level:   alert.Level,
		Kind:    alert.Kind,
		Title:   alert.Title,
		Message: alert.Message,
		Trade:   alert.Trade,
		Limit:   alert.Limit,
		TS:      w.now().UTC().Format(time.RFC3339Nano),
	}
	if alert.Trade != nil {
		payload.Symbol = alert.Trade.Symbol
	}
	if err := w.p.post(ctx, w.url, payload); err != nil {
		return err
	}
	w.p.logger.Debug("alert sent", slog.String("kind", string(alert.Kind)), slog.String("title", alert.Title))
	return nil
}
