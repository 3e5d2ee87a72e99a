package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// DefaultTelegramBaseURL is the Bot API endpoint.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// Ensure TelegramNotifier implements model.Deliverer.
var _ model.Deliverer = (*TelegramNotifier)(nil)

// TelegramNotifier posts messages to a Telegram channel through the Bot API.
type TelegramNotifier struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegramNotifier returns a notifier that sends each message to chatID
// (a channel username such as "@llmforall" or a numeric id).
func NewTelegramNotifier(baseURL, token, chatID string, httpClient *http.Client, logger *slog.Logger) *TelegramNotifier {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &TelegramNotifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ChatID returns the destination channel.
func (t *TelegramNotifier) ChatID() string { return t.chatID }

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// Deliver sends msg as legacy Markdown with link previews disabled. A 429 is
// retried once after the server-provided delay.
func (t *TelegramNotifier) Deliver(ctx context.Context, msg model.Message) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  msg.Text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	err = t.send(ctx, body)
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		wait := httpErr.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		t.logger.Warn("telegram rate limited, retrying", "id", msg.RecordID, "retry_after", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("telegram retry for %s: %w", msg.RecordID, ctx.Err())
		case <-timer.C:
		}

		if err := t.send(ctx, body); err != nil {
			return fmt.Errorf("telegram send %s (retry): %w", msg.RecordID, err)
		}
		t.logger.Info("telegram message sent", "id", msg.RecordID, "chat", t.chatID, "retried", true)
		return nil
	}
	if err != nil {
		return fmt.Errorf("telegram send %s: %w", msg.RecordID, err)
	}

	t.logger.Info("telegram message sent", "id", msg.RecordID, "chat", t.chatID)
	return nil
}

func (t *TelegramNotifier) send(ctx context.Context, body []byte) error {
	endpoint := t.baseURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to telegram: %w", redact(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var tr telegramResponse
	_ = json.Unmarshal(raw, &tr) // error bodies are not always JSON

	if resp.StatusCode == http.StatusOK && tr.OK {
		return nil
	}

	httpErr := &model.HTTPError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description),
	}
	if tr.Parameters != nil && tr.Parameters.RetryAfter > 0 {
		httpErr.RetryAfter = time.Duration(tr.Parameters.RetryAfter) * time.Second
	}
	return httpErr
}

// redact drops the request URL, which carries the bot token, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// SendTestMessage sends a fixed message to verify the integration works.
func SendTestMessage(ctx context.Context, d model.Deliverer) error {
	return d.Deliver(ctx, model.Message{
		RecordID: "test-001",
		Text:     "*vacancyfeed* test message\n\nDelivery is configured correctly.",
	})
}
