package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService posts order confirmations to a Telegram chat.
type TelegramService struct {
	botToken string
	chatID   string
	apiURL   string
	http     *http.Client
	logger   *slog.Logger
}

// NewTelegramService creates a new TelegramService. Without a bot token or
// chat id every send is a logged no-op.
func NewTelegramService(botToken, chatID string, logger *slog.Logger) *TelegramService {
	return &TelegramService{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   telegramAPI,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// WithAPIURL points the service at another Bot API host.
func (s *TelegramService) WithAPIURL(apiURL string) *TelegramService {
	s.apiURL = strings.TrimRight(apiURL, "/")
	return s
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to the configured chat.
func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if s.botToken == "" || s.chatID == "" {
		s.logger.DebugContext(ctx, "[telegram] not configured, skipping message")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: s.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "[telegram] failed to send message", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WarnContext(ctx, "[telegram] unexpected status", "status", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// FormatConfirmation renders the confirmation message.
func FormatConfirmation(c models.Confirmation) string {
	var items strings.Builder
	for i, item := range c.Items {
		price := 0.0
		if item.Price != nil {
			price = *item.Price
		}
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(name),
			item.Quantity,
			utils.FormatPrice(price, c.Currency),
			utils.FormatPrice(price*float64(item.Quantity), c.Currency),
		)
	}

	payment := "Cash on delivery"
	if c.PaymentMethod == models.PaymentMethodRazorpay {
		payment = "Online (" + html.EscapeString(c.PaymentID) + ")"
	}

	customer := "guest"
	if c.Customer != nil {
		customer = html.EscapeString(c.Customer.Name)
		if c.Customer.Phone != "" {
			customer += " / " + html.EscapeString(c.Customer.Phone)
		}
	}

	message := fmt.Sprintf(`<b>🛒 ORDER CONFIRMED</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Payment:</b> %s`,
		html.EscapeString(c.OrderID),
		customer,
		items.String(),
		utils.FormatPrice(c.Amount, c.Currency),
		payment,
	)
	return strings.TrimSpace(message)
}

// ShowConfirmation notifies the chat about a completed checkout. Delivery
// failures are logged, never surfaced: the order is already placed.
func (s *TelegramService) ShowConfirmation(ctx context.Context, c models.Confirmation) {
	if err := s.SendMessage(ctx, FormatConfirmation(c)); err != nil {
		s.logger.WarnContext(ctx, "[telegram] confirmation not delivered", "orderId", c.OrderID, "error", err)
	}
}
