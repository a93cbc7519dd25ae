// Package notification delivers cycle outcomes to external channels. Delivery
// is best-effort: failures are logged and retried a bounded number of times,
// never propagated to the trading path.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyBracket    NotificationType = "bracket"
	NotifyProfitTake NotificationType = "profit_take"
	NotifySwap       NotificationType = "swap"
	NotifyBuyBack    NotificationType = "buy_back"
	NotifyError      NotificationType = "error"
	NotifyInfo       NotificationType = "info"
)

const (
	maxSendAttempts = 3
	retryBackoff    = 500 * time.Millisecond
)

// Notification represents a notification message
type Notification struct {
	Type       NotificationType
	Title      string
	Message    string
	Symbol     string
	Price      float64
	PnL        float64
	PnLPercent float64
	Timestamp  time.Time
	Extra      map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to all enabled providers with bounded retries
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    zerolog.Logger
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
		logger:    logging.WithComponent("notification"),
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers a notification to all enabled providers. Each provider gets up
// to maxSendAttempts tries; the last error per provider is logged and the call
// always returns nil so a channel outage cannot stall a trading cycle.
func (m *Manager) Send(notification *Notification) {
	if !m.enabled {
		return
	}

	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}

		var lastErr error
		for attempt := 1; attempt <= maxSendAttempts; attempt++ {
			if lastErr = n.Send(notification); lastErr == nil {
				break
			}
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
		if lastErr != nil {
			m.logger.Warn().
				Err(lastErr).
				Str("provider", n.Name()).
				Str("type", string(notification.Type)).
				Msg("notification delivery failed after retries")
		}
	}
}

// SendBracketCreated announces a fresh bracket around the current price
func (m *Manager) SendBracketCreated(symbol string, currentPrice, buyEntry, sellEntry, quantity float64) {
	m.Send(&Notification{
		Type:  NotifyBracket,
		Title: fmt.Sprintf("🎯 Bracket Created: %s", symbol),
		Message: fmt.Sprintf("Price: %.4f\nBuy entry: %.4f | Sell entry: %.4f\nQuantity: %.8f",
			currentPrice, buyEntry, sellEntry, quantity),
		Symbol:    symbol,
		Price:     currentPrice,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"buy_entry":  buyEntry,
			"sell_entry": sellEntry,
			"quantity":   quantity,
		},
	})
}

// SendProfitTaken announces a profit-taking close of both bracket legs
func (m *Manager) SendProfitTaken(symbol string, entryPrice, exitPrice, pnl, pnlPercent float64, reason string) {
	emoji := "✅"
	if pnl < 0 {
		emoji = "❌"
	}

	m.Send(&Notification{
		Type:  NotifyProfitTake,
		Title: fmt.Sprintf("%s Profit Taken: %s", emoji, symbol),
		Message: fmt.Sprintf("Entry: %.4f → Exit: %.4f\nP&L: %.4f (%.2f%%)\nReason: %s",
			entryPrice, exitPrice, pnl, pnlPercent, reason),
		Symbol:     symbol,
		Price:      exitPrice,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		Timestamp:  time.Now(),
	})
}

// SendSwap announces a completed asset swap
func (m *Manager) SendSwap(fromSymbol, toSymbol string, fromAmount, toAmount, rate float64) {
	m.Send(&Notification{
		Type:  NotifySwap,
		Title: fmt.Sprintf("🔄 Swap: %s → %s", fromSymbol, toSymbol),
		Message: fmt.Sprintf("%.8f %s → %.8f %s @ %.6f",
			fromAmount, fromSymbol, toAmount, toSymbol, rate),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"from_amount": fromAmount,
			"to_amount":   toAmount,
			"rate":        rate,
		},
	})
}

// SendBuyBack announces a stablecoin-to-asset conversion on a dip
func (m *Manager) SendBuyBack(symbol string, price, amount float64, reason string) {
	m.Send(&Notification{
		Type:      NotifyBuyBack,
		Title:     fmt.Sprintf("📈 Buy Back: %s", symbol),
		Message:   fmt.Sprintf("Price: %.4f\nAmount: %.8f\nReason: %s", price, amount, reason),
		Symbol:    symbol,
		Price:     price,
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
		color = 0xFF0000
	} else if notification.Type == NotifyProfitTake && notification.PnL < 0 {
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
				"name": "Price", "value": fmt.Sprintf("%.4f", notification.Price), "inline": true,
			})
		}
		if notification.PnL != 0 {
			fields = append(fields, map[string]interface{}{
				"name": "P&L", "value": fmt.Sprintf("%.4f (%.2f%%)", notification.PnL, notification.PnLPercent), "inline": true,
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
