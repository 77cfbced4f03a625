package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scalper/internal/model"
)

// TelegramNotifier sends alerts through the Telegram Bot API as MarkdownV2.
// Trades render as an order card; other alerts as title and message.
type TelegramNotifier struct {
	apiBase  string
	botToken string
	chatID   string
	p        poster
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		apiBase:  "https://api.telegram.org",
		botToken: botToken,
		chatID:   chatID,
		p:        newPoster("telegram"),
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	err := t.p.post(ctx, url, map[string]string{
		"chat_id":    t.chatID,
		"text":       formatTelegram(alert),
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return err
	}
	t.p.logger.Debug("alert sent", slog.String("kind", string(alert.Kind)), slog.String("title", alert.Title))
	return nil
}

func formatTelegram(a Alert) string {
	if tr := a.Trade; tr != nil {
		icon := "🟢"
		if tr.Side == model.ActionSell {
			icon = "🔴"
		}
		lines := []string{
			fmt.Sprintf("%s *%s %s*", icon, escapeMarkdown(strings.ToUpper(string(tr.Side))), escapeMarkdown(tr.Symbol)),
			"Amount: " + escapeMarkdown(fmt.Sprintf("%.4f", tr.Amount)),
			"Price: " + escapeMarkdown(fmt.Sprintf("%.6g", tr.Price)),
			"Notional: " + escapeMarkdown(fmt.Sprintf("%.2f", tr.Notional)),
			"Confidence: " + escapeMarkdown(fmt.Sprintf("%.0f%%", tr.Confidence*100)),
			"Order: `" + tr.OrderID + "`",
		}
		return strings.Join(lines, "\n")
	}

	icon := "ℹ️"
	switch a.Level {
	case AlertWarning:
		icon = "⚠️"
	case AlertCritical:
		icon = "🚨"
	}
	text := fmt.Sprintf("%s *%s*\n\n%s", icon, escapeMarkdown(a.Title), escapeMarkdown(a.Message))
	if l := a.Limit; l != nil {
		text += "\n" + escapeMarkdown(fmt.Sprintf("Reason: %s | Trades: %d | PnL: %.2f", l.Reason, l.DailyTrades, l.DailyPnL))
	}
	return text
}

const markdownSpecials = "_*[]()~`>#+-=|{}.!\\"

// escapeMarkdown escapes the MarkdownV2 reserved characters.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
