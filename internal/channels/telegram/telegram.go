package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ETAnderson/offersync/internal/channels"
)

const DefaultAPIURL = "https://api.telegram.org"

// Channel publishes to one Telegram chat through the Bot API.
type Channel struct {
	HTTP   *http.Client
	APIURL string
	Token  string
	ChatID string
}

func New(httpClient *http.Client, apiURL string, token string, chatID string) *Channel {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultAPIURL
	}
	return &Channel{
		HTTP:   httpClient,
		APIURL: strings.TrimRight(apiURL, "/"),
		Token:  token,
		ChatID: chatID,
	}
}

func (c *Channel) Name() string { return "telegram" }

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

func (c *Channel) Create(ctx context.Context, text string, markup channels.Markup, silent bool) (channels.Response, error) {
	resp, err := c.post(ctx, "sendMessage", map[string]any{
		"chat_id":              c.ChatID,
		"text":                 text,
		"parse_mode":           "Markdown",
		"disable_notification": silent,
		"reply_markup":         markup,
	})
	if err != nil {
		return channels.Response{}, err
	}

	out := channels.Response{OK: resp.OK, Description: resp.Description}
	if resp.OK {
		var m sentMessage
		if err := json.Unmarshal(resp.Result, &m); err != nil {
			return channels.Response{}, fmt.Errorf("telegram sendMessage: decode result: %w", err)
		}
		out.MessageID = m.MessageID
	}
	return out, nil
}

func (c *Channel) UpdateText(ctx context.Context, messageID int64, text string, markup channels.Markup) (channels.Response, error) {
	return c.simple(ctx, "editMessageText", map[string]any{
		"chat_id":      c.ChatID,
		"message_id":   messageID,
		"text":         text,
		"parse_mode":   "Markdown",
		"reply_markup": markup,
	})
}

func (c *Channel) UpdateMarkup(ctx context.Context, messageID int64, markup channels.Markup) (channels.Response, error) {
	return c.simple(ctx, "editMessageReplyMarkup", map[string]any{
		"chat_id":      c.ChatID,
		"message_id":   messageID,
		"reply_markup": markup,
	})
}

func (c *Channel) Delete(ctx context.Context, messageID int64) (channels.Response, error) {
	return c.simple(ctx, "deleteMessage", map[string]any{
		"chat_id":    c.ChatID,
		"message_id": messageID,
	})
}

// MemberCount returns the number of channel subscribers.
func (c *Channel) MemberCount(ctx context.Context) (int, error) {
	q := url.Values{"chat_id": {c.ChatID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getChatMembersCount")+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req, "getChatMembersCount")
	if err != nil {
		return 0, err
	}
	if !resp.OK {
		return 0, fmt.Errorf("telegram getChatMembersCount: %s", resp.Description)
	}

	var n int
	if err := json.Unmarshal(resp.Result, &n); err != nil {
		return 0, fmt.Errorf("telegram getChatMembersCount: decode result: %w", err)
	}
	return n, nil
}

func (c *Channel) simple(ctx context.Context, method string, payload map[string]any) (channels.Response, error) {
	resp, err := c.post(ctx, method, payload)
	if err != nil {
		return channels.Response{}, err
	}
	return channels.Response{OK: resp.OK, Description: resp.Description}, nil
}

func (c *Channel) post(ctx context.Context, method string, payload map[string]any) (apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return apiResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method)
}

func (c *Channel) do(req *http.Request, method string) (apiResponse, error) {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	// Error replies carry a JSON body too, whatever the status code.
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return apiResponse{}, fmt.Errorf("telegram %s: status %d: unable to parse JSON: %w", method, res.StatusCode, err)
	}
	return out, nil
}

func (c *Channel) methodURL(method string) string {
	return c.APIURL + "/bot" + c.Token + "/" + method
}
