package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/record"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]any
	Status int
}

func newAPIServer(t *testing.T, handler func(path string, body map[string]any) (int, string)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		status, resp := handler(r.URL.Path, body)
		seen = append(seen, capturedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body, Status: status})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestOpenAI_RewriteAsPrompt(t *testing.T) {
	t.Parallel()

	srv, seen := newAPIServer(t, func(path string, body map[string]any) (int, string) {
		return 200, `{"choices":[{"message":{"content":"a detailed prompt"}}]}`
	})
	c := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})

	got, err := c.RewriteAsPrompt(context.Background(), "a cat")
	require.NoError(t, err)
	require.Equal(t, "a detailed prompt", got)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	require.Equal(t, "/chat/completions", req.Path)
	require.Equal(t, "Bearer sk-test", req.Auth)
	require.Equal(t, "gpt-4o", req.Body["model"])
	msgs := req.Body["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].(string)
	require.True(t, strings.HasSuffix(content, "a cat"))
}

func TestOpenAI_GenerateImage(t *testing.T) {
	t.Parallel()

	srv, seen := newAPIServer(t, func(path string, body map[string]any) (int, string) {
		return 200, `{"data":[{"url":"https://cdn.example/img.png"}]}`
	})
	c := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})

	url, err := c.GenerateImage(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/img.png", url)

	body := (*seen)[0].Body
	require.Equal(t, "/images/generations", (*seen)[0].Path)
	require.Equal(t, "dall-e-3", body["model"])
	require.Equal(t, "1024x1024", body["size"])
	require.Equal(t, float64(1), body["n"])
}

func TestOpenAI_GenerateImageWithoutURL(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t, func(string, map[string]any) (int, string) {
		return 200, `{"data":[]}`
	})
	c := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})

	_, err := c.GenerateImage(context.Background(), "prompt")
	require.ErrorIs(t, err, record.ErrGateway)
}

func TestOpenAI_DescribeImageSendsDataURL(t *testing.T) {
	t.Parallel()

	srv, seen := newAPIServer(t, func(string, map[string]any) (int, string) {
		return 200, `{"choices":[{"message":{"content":"orange cat"}}]}`
	})
	c := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})

	// base64 of the PNG signature
	b64 := "iVBORw0KGgoAAAANSUhEUg=="
	got, err := c.DescribeImage(context.Background(), b64)
	require.NoError(t, err)
	require.Equal(t, "orange cat", got)

	msgs := (*seen)[0].Body["messages"].([]any)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	require.Equal(t, "data:image/png;base64,"+b64, img)
}

func TestOpenAI_ErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error body", 400, `{"error":{"message":"bad prompt"}}`, "HTTP Error: 400 - bad prompt"},
		{"raw body", 502, `upstream exploded`, "HTTP Error: 502 - upstream exploded"},
		{"rate limited", 429, `{"error":{"message":"slow down"}}`, "HTTP Error: 429 - slow down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newAPIServer(t, func(string, map[string]any) (int, string) {
				return tc.status, tc.body
			})
			c := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := c.SuggestTitles(context.Background(), "t", "d")
			require.ErrorIs(t, err, record.ErrGateway)
			require.Contains(t, err.Error(), tc.wantMsg)

			var gerr *gateway.Error
			require.ErrorAs(t, err, &gerr)
			require.Equal(t, tc.status, gerr.StatusCode)
		})
	}
}

func TestOpenAI_MissingKey(t *testing.T) {
	t.Parallel()

	c := gateway.NewOpenAI(gateway.OpenAIConfig{})
	_, err := c.RewriteAsPrompt(context.Background(), "x")
	require.ErrorIs(t, err, record.ErrGateway)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")
}
