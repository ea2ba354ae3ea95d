// Package telegram implements the Bot API client and the command front-end
// for the attendance bot.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ParseModeMarkdownV2 is the only parse mode the bot sends. All rendered
// text is escaped accordingly before it reaches the API.
const ParseModeMarkdownV2 = "MarkdownV2"

// Update is one incoming event from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming or sent Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the bot's own identity, from getMe.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client is a minimal Bot API client covering the methods the bot needs.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL("https://api.telegram.org/bot" + token).
			SetTimeout(90 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
	}
}

// call invokes a Bot API method and unmarshals the result envelope into out.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	var envelope apiResponse
	req := c.http.R().SetContext(ctx).SetResult(&envelope).SetError(&envelope)
	if params != nil {
		req.SetBody(params)
	}
	resp, err := req.Post("/" + method)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !envelope.OK {
		desc := envelope.Description
		if desc == "" {
			desc = resp.Status()
		}
		return fmt.Errorf("telegram %s: %s (code %d)", method, desc, envelope.ErrorCode)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's identity. Used at startup as a token check.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var me User
	err := c.call(ctx, "getMe", nil, &me)
	return me, err
}

// GetUpdates long-polls for new updates after offset. timeout is the
// server-side hold in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat and returns the sent message, so the
// caller can edit it later.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) (Message, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}
	var sent Message
	err := c.call(ctx, "sendMessage", params, &sent)
	return sent, err
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}
	return c.call(ctx, "editMessageText", params, nil)
}
