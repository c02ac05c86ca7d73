// Package telegram delivers trade alerts and receives operator commands
// through the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pairs_go/internal/domain"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier implements domain.Notifier against a single chat.
type Notifier struct {
	apiBase    string
	token      string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewNotifier(token, chatID string) *Notifier {
	return &Notifier{
		apiBase:    defaultAPIBase,
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default().With("component", "telegram"),
	}
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Notify sends a text message to the configured chat. Delivery failures are
// returned but never fatal to the caller.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	var resp sendResponse
	if err := n.post(ctx, "sendMessage", form, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram: sendMessage rejected: %s", resp.Description)
	}
	return nil
}

// PollCommands fetches updates newer than sinceID and returns text commands
// from the configured chat, oldest first.
func (n *Notifier) PollCommands(ctx context.Context, sinceID int64) ([]domain.Command, error) {
	form := url.Values{}
	form.Set("offset", strconv.FormatInt(sinceID+1, 10))
	form.Set("timeout", "0")

	var resp updatesResponse
	if err := n.post(ctx, "getUpdates", form, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram: getUpdates rejected")
	}

	var cmds []domain.Command
	for _, u := range resp.Result {
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		if n.chatID != "" && strconv.FormatInt(u.Message.Chat.ID, 10) != n.chatID {
			n.logger.Warn("ignoring command from unknown chat", "chat_id", u.Message.Chat.ID)
			continue
		}
		cmds = append(cmds, domain.Command{
			ID:   u.UpdateID,
			Text: strings.TrimSpace(u.Message.Text),
		})
	}
	return cmds, nil
}

func (n *Notifier) post(ctx context.Context, method string, form url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	return nil
}
