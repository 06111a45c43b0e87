package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
)

const telegramAPIURL = "https://api.telegram.org"

// TelegramService sends admin notifications through the Telegram Bot API.
type TelegramService struct {
	baseURL     string
	botToken    string
	adminChatID string
	client      *http.Client
	log         *logger.Logger
}

// NewTelegramService creates a new TelegramService. An empty token or
// chat id turns every send into a no-op.
func NewTelegramService(botToken, adminChatID string, log *logger.Logger) *TelegramService {
	return &TelegramService{
		baseURL:     telegramAPIURL,
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to chatID.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("telegram bot token not configured")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice formats an amount in baht with thousand separators.
func FormatPrice(amount float64) string {
	whole := int64(amount)
	satang := int64((amount-float64(whole))*100 + 0.5)
	if satang == 100 {
		whole++
		satang = 0
	}

	str := fmt.Sprintf("%d", whole)
	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	if satang > 0 {
		fmt.Fprintf(&result, ".%02d", satang)
	}
	return "฿" + result.String()
}

// NotifyNewOrder tells the admin chat about a placed order.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			item.Quantity,
			FormatPrice(item.UnitPrice),
			FormatPrice(item.LineTotal),
		)
	}

	payment := "Cash on delivery"
	if order.PaymentMethod == models.PaymentBankTransfer {
		payment = "Bank transfer"
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s
<b>Phone:</b> %s
<b>Address:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s (%d items)
<b>Payment:</b> %s`,
		order.OrderNumber,
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.CustomerPhone),
		html.EscapeString(order.Address),
		items.String(),
		FormatPrice(order.TotalAmount),
		order.TotalItems,
		payment,
	)
	if order.Notes != "" {
		message += "\n<b>Note:</b> " + html.EscapeString(order.Notes)
	}

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
