package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/strategy"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifySignal     NotificationType = "signal"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyError      NotificationType = "error"
	NotifyStatus     NotificationType = "status"
)

// Send retry policy: one retry after a short pause, then give up. Alerts
// never block or fail a run.
const (
	sendAttempts = 2
	retryBackoff = 2 * time.Second
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Price     float64
	PnL       float64
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans a notification out to every enabled provider, retrying each
// provider independently. Delivery failures are logged and swallowed.
type Manager struct {
	notifiers []Notifier
	logger    *logging.Logger
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.WithComponent("notification")
	}
	return &Manager{
		notifiers: make([]Notifier, 0),
		logger:    logger,
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers a notification to all enabled providers. Each provider gets
// sendAttempts tries with a backoff between them; exhausted providers are
// logged, never propagated.
func (m *Manager) Send(notification *Notification) {
	if !m.enabled {
		return
	}

	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}

		var err error
		for attempt := 1; attempt <= sendAttempts; attempt++ {
			if err = n.Send(notification); err == nil {
				break
			}
			if attempt < sendAttempts {
				time.Sleep(retryBackoff)
			}
		}
		if err != nil {
			m.logger.Error("notification delivery failed",
				"provider", n.Name(),
				"type", string(notification.Type),
				"error", err)
		}
	}
}

// SendSignal announces a freshly emitted signal
func (m *Manager) SendSignal(s *signal.Signal) {
	emoji := "🟢"
	if s.Side == strategy.Short {
		emoji = "🔴"
	}

	targets := make([]string, len(s.Targets))
	for i, tp := range s.Targets {
		targets[i] = fmt.Sprintf("%.2f", tp)
	}

	m.Send(&Notification{
		Type:  NotifySignal,
		Title: fmt.Sprintf("%s Signal #%s: %s %s", emoji, s.Serial, s.Symbol, s.Timeframe),
		Message: fmt.Sprintf(
			"%s %s @ %.2f\nSL: %.2f | TP: %s\nStrategy: %s\nConfidence: %.2f | Momentum: %.0f (%s)",
			s.Side, s.Symbol, s.Entry, s.StopLoss, strings.Join(targets, " / "),
			s.Strategy, s.Confidence, s.Momentum, s.MomentumCat),
		Symbol:    s.Symbol,
		Price:     s.Entry,
		Timestamp: time.Now(),
	})
}

// SendTradeClose announces a closed trade with its exit reason and result
func (m *Manager) SendTradeClose(trade signal.Signal, reason string, exitPrice, profit float64) {
	emoji := "✅"
	if profit < 0 {
		emoji = "❌"
	}

	m.Send(&Notification{
		Type:  NotifyTradeClose,
		Title: fmt.Sprintf("%s Trade Closed #%s: %s", emoji, trade.Serial, trade.Symbol),
		Message: fmt.Sprintf(
			"Entry: %.2f → Exit: %.2f\nP&L: %.2f\nReason: %s\nStrategy: %s",
			trade.Entry, exitPrice, profit, reason, trade.Strategy),
		Symbol:    trade.Symbol,
		Price:     exitPrice,
		PnL:       profit,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) {
	m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// SendStatus summarizes the currently open trades
func (m *Manager) SendStatus(trades []signal.Signal) {
	if len(trades) == 0 {
		m.Send(&Notification{
			Type:      NotifyStatus,
			Title:     "📊 Status",
			Message:   "No open trades",
			Timestamp: time.Now(),
		})
		return
	}

	var b strings.Builder
	for _, t := range trades {
		fmt.Fprintf(&b, "#%s %s %s @ %.2f (%s)\n",
			t.Serial, t.Side, t.Symbol, t.Entry, t.Strategy)
	}

	m.Send(&Notification{
		Type:      NotifyStatus,
		Title:     fmt.Sprintf("📊 Status: %d open trades", len(trades)),
		Message:   strings.TrimRight(b.String(), "\n"),
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00 // Green
	if notification.Type == NotifyError {
		color = 0xFF0000 // Red
	} else if notification.Type == NotifyTradeClose && notification.PnL < 0 {
		color = 0xFF0000
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.2f", notification.Price), "inline": true,
			})
		}
		if notification.PnL != 0 {
			fields = append(fields, map[string]interface{}{
				"name": "P&L", "value": fmt.Sprintf("%.2f", notification.PnL), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
