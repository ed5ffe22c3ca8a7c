package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/pkg/log"
)

const defaultGoogleEndpoint = "https://translate.googleapis.com"

// Google is the keyless fallback provider. The public endpoint has no batch
// call, so items go out one request at a time; a failed item keeps its
// source text instead of failing the batch.
type Google struct {
	httpClient *http.Client
	baseURL    string
	backLang   language.Tag
}

type GoogleOption func(*Google)

// WithGoogleEndpoint overrides the endpoint base URL. Used by tests.
func WithGoogleEndpoint(baseURL string) GoogleOption {
	return func(g *Google) { g.baseURL = baseURL }
}

func NewGoogle(backLang language.Tag, opts ...GoogleOption) *Google {
	if backLang == language.Und {
		backLang = language.English
	}
	g := &Google{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultGoogleEndpoint,
		backLang:   backLang,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Translate(ctx context.Context, texts []string, target language.Tag, _ string) ([]string, error) {
	return g.translateAll(ctx, texts, target.String())
}

func (g *Google) BackTranslate(ctx context.Context, texts []string) ([]string, error) {
	return g.translateAll(ctx, texts, g.backLang.String())
}

func (g *Google) translateAll(ctx context.Context, texts []string, target string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		translated, err := g.translateOne(ctx, t, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("google translate item %d failed, keeping source text: %v", i, err)
			out[i] = t
			continue
		}
		out[i] = translated
	}
	return out, nil
}

func (g *Google) translateOne(ctx context.Context, text, target string) (string, error) {
	endpoint := fmt.Sprintf("%s/translate_a/single?client=gtx&sl=auto&tl=%s&dt=t&q=%s",
		g.baseURL, url.QueryEscape(target), url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The response is a nested array; the first element holds segments
	// whose first field is the translated text.
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return "", fmt.Errorf("unexpected response shape")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected segment shape")
	}

	var result string
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		result += part
	}
	return result, nil
}
