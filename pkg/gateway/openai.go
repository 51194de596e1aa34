package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jlrickert/cli-toolkit/mylog"
)

// Defaults for OpenAIConfig.
const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultChatModel    = "gpt-4o"
	DefaultImageModel   = "dall-e-3"
	DefaultImageSize    = "1024x1024"
	DefaultImageQuality = "standard"
	DefaultTimeout      = 120 * time.Second
)

// OpenAIConfig configures the OpenAI REST client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	ChatModel    string
	ImageModel   string
	ImageSize    string
	ImageQuality string

	// Timeout bounds every request, including reading the body.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// OpenAI implements Gateway against the OpenAI chat completions and image
// generation endpoints.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

var _ Gateway = (*OpenAI)(nil)

// NewOpenAI fills unset fields of cfg with defaults and returns a client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.ImageQuality == "" {
		cfg.ImageQuality = DefaultImageQuality
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAI{cfg: cfg, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) RewriteAsPrompt(ctx context.Context, text string) (string, error) {
	return o.chat(ctx, "rewrite", 500, chatMessage{Role: "user", Content: rewriteInstruction + text})
}

func (o *OpenAI) DescribeImage(ctx context.Context, imageBase64 string) (string, error) {
	msg := chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: describeInstruction},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:" + sniffBase64(imageBase64) + ";base64," + imageBase64,
			}},
		},
	}
	return o.chat(ctx, "describe", 1000, msg)
}

func (o *OpenAI) SuggestTitles(ctx context.Context, text, description string) (string, error) {
	return o.chat(ctx, "titles", 200, chatMessage{Role: "user", Content: titlesInstruction(text, description)})
}

func (o *OpenAI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	const op = "images/generations"
	req := imageRequest{
		Model:   o.cfg.ImageModel,
		Prompt:  prompt,
		N:       1,
		Size:    o.cfg.ImageSize,
		Quality: o.cfg.ImageQuality,
	}
	var resp imageResponse
	if err := o.post(ctx, op, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &Error{Op: op, Message: "response contains no image url"}
	}
	return resp.Data[0].URL, nil
}

func (o *OpenAI) chat(ctx context.Context, purpose string, maxTokens int, msg chatMessage) (string, error) {
	const op = "chat/completions"
	req := chatRequest{
		Model:     o.cfg.ChatModel,
		Messages:  []chatMessage{msg},
		MaxTokens: maxTokens,
	}
	var resp chatResponse
	if err := o.post(ctx, op, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Op: op, Message: purpose + ": response contains no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) post(ctx context.Context, op string, body any, out any) error {
	if o.cfg.APIKey == "" {
		return &Error{Op: op, Message: "OPENAI_API_KEY is not set"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Message: "encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	lg := mylog.LoggerFromContext(ctx)
	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		lg.Warn("gateway_request_failed", "op", op, "error", err)
		return &Error{Op: op, Message: "request failed", Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "read response", Cause: err}
	}
	lg.Debug("gateway_response", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: upstreamMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Message: "decode response", Cause: err}
	}
	return nil
}

// upstreamMessage extracts error.message from an API error body, or the first
// 200 bytes of the body when it has another shape.
func upstreamMessage(data []byte) string {
	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(data)
}

// sniffBase64 guesses the media type of base64 image data from its first
// bytes, defaulting to image/png.
func sniffBase64(b64 string) string {
	head := b64
	if len(head) > 64 {
		head = head[:64]
	}
	raw, _ := base64.StdEncoding.DecodeString(head)
	if ct := http.DetectContentType(raw); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}

// String hides the API key when a client is printed.
func (o *OpenAI) String() string {
	return fmt.Sprintf("openai(%s, chat=%s, image=%s)", o.cfg.BaseURL, o.cfg.ChatModel, o.cfg.ImageModel)
}
