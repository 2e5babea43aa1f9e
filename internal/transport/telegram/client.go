package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/transport"
)

const defaultBaseURL = "https://api.telegram.org"

// APIError is a non-ok response from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (%d)", e.Description, e.Code)
}

// Client implements transport.Client against the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the given bot token.
func New(token string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		// long uploads of sizable media need generous client timeouts;
		// per-request deadlines come from the caller's context
		http: &http.Client{Timeout: 10 * time.Minute},
		log:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type apiChat struct {
	ID int64 `json:"id"`
}

type apiMessage struct {
	MessageID int     `json:"message_id"`
	Chat      apiChat `json:"chat"`
}

// call posts a JSON body to the named method and decodes the result.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, result)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request, method string, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("%s: %w", method, &APIError{Code: api.ErrorCode, Description: api.Description})
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// sendReturningMessage calls a method whose result is a Message.
func (c *Client) sendReturningMessage(ctx context.Context, method string, params any) (transport.SentMessage, error) {
	var msg apiMessage
	if err := c.call(ctx, method, params, &msg); err != nil {
		return transport.SentMessage{}, err
	}
	return transport.SentMessage{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) (transport.SentMessage, error) {
	return c.sendReturningMessage(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

func (c *Client) SendPhotoURL(ctx context.Context, chatID int64, url string) (transport.SentMessage, error) {
	return c.sendReturningMessage(ctx, "sendPhoto", map[string]any{
		"chat_id": chatID,
		"photo":   url,
	})
}

func (c *Client) SendVideoURL(ctx context.Context, chatID int64, url string) (transport.SentMessage, error) {
	return c.sendReturningMessage(ctx, "sendVideo", map[string]any{
		"chat_id": chatID,
		"video":   url,
	})
}

func (c *Client) SendVideoFile(ctx context.Context, chatID int64, name string, r io.Reader) (transport.SentMessage, error) {
	return c.upload(ctx, "sendVideo", "video", chatID, name, r)
}

func (c *Client) SendAudioFile(ctx context.Context, chatID int64, name string, r io.Reader) (transport.SentMessage, error) {
	return c.upload(ctx, "sendAudio", "audio", chatID, name, r)
}

// upload streams a local file as a multipart request.
func (c *Client) upload(ctx context.Context, method, field string, chatID int64, name string, r io.Reader) (transport.SentMessage, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(form, field, chatID, name, r)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), pr)
	if err != nil {
		return transport.SentMessage{}, fmt.Errorf("build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var msg apiMessage
	if err := c.do(req, method, &msg); err != nil {
		return transport.SentMessage{}, err
	}
	return transport.SentMessage{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func writeUploadForm(form *multipart.Writer, field string, chatID int64, name string, r io.Reader) error {
	if err := form.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return err
	}
	part, err := form.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

func keyboard(buttons [][]transport.Button) map[string]any {
	rows := make([][]inlineButton, len(buttons))
	for i, row := range buttons {
		rows[i] = make([]inlineButton, len(row))
		for j, b := range row {
			rows[i][j] = inlineButton{Text: b.Text, CallbackData: b.Data}
		}
	}
	return map[string]any{"inline_keyboard": rows}
}

func (c *Client) SendButtons(ctx context.Context, chatID int64, text, photoURL string, buttons [][]transport.Button) (transport.SentMessage, error) {
	if photoURL != "" {
		return c.sendReturningMessage(ctx, "sendPhoto", map[string]any{
			"chat_id":      chatID,
			"photo":        photoURL,
			"caption":      text,
			"reply_markup": keyboard(buttons),
		})
	}
	return c.sendReturningMessage(ctx, "sendMessage", map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"reply_markup": keyboard(buttons),
	})
}

func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (transport.SentMessage, error) {
	params := map[string]any{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}
	if caption != "" {
		params["caption"] = caption
	}
	// copyMessage returns a bare MessageId, not a full Message
	var res struct {
		MessageID int `json:"message_id"`
	}
	if err := c.call(ctx, "copyMessage", params, &res); err != nil {
		return transport.SentMessage{}, err
	}
	return transport.SentMessage{ChatID: toChatID, MessageID: res.MessageID}, nil
}

func (c *Client) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (transport.SentMessage, error) {
	return c.sendReturningMessage(ctx, "forwardMessage", map[string]any{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	})
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action transport.ChatAction) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  string(action),
	}, nil)
}

func (c *Client) React(ctx context.Context, chatID int64, messageID int, emoji string) error {
	return c.call(ctx, "setMessageReaction", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"reaction": []map[string]string{
			{"type": "emoji", "emoji": emoji},
		},
	}, nil)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}
