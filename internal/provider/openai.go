package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/llm"
	"github.com/mistward/fmgtrans/pkg/log"
)

// OpenAI translates batches through an OpenAI-compatible chat completions
// endpoint. The request carries a numbered list of texts and asks for a
// JSON array of {index, text} objects, which keeps alignment explicit even
// when the model reorders its answer.
type OpenAI struct {
	client   *llm.Client
	backLang language.Tag
}

func NewOpenAI(cfg *llm.Config, backLang language.Tag) (*OpenAI, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if backLang == language.Und {
		backLang = language.English
	}
	return &OpenAI{client: client, backLang: backLang}, nil
}

type indexedText struct {
	Index *int   `json:"index"`
	Text  string `json:"text"`
}

func (p *OpenAI) Translate(ctx context.Context, texts []string, target language.Tag, instructions string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	systemMsg := fmt.Sprintf("You are a professional translator. Translate the provided list of texts into %s.", target)

	var sb strings.Builder
	if instructions != "" {
		sb.WriteString("Additional instructions: ")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}
	sb.WriteString("Translate these texts. Return a JSON array of objects with keys: index (0-based), text (translated). ")
	sb.WriteString(`Example: [{"index":0,"text":"..."}]`)
	sb.WriteString("\n\nTexts:\n")
	writeNumbered(&sb, texts)

	return p.request(ctx, systemMsg, sb.String(), texts)
}

func (p *OpenAI) BackTranslate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	systemMsg := fmt.Sprintf("You are a translation assistant. Translate the provided list of texts into %s.", p.backLang)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate these texts back into %s and return a JSON array of objects with keys: index (0-based), text.", p.backLang))
	sb.WriteString("\n\nTexts:\n")
	writeNumbered(&sb, texts)

	out, err := p.requestAligned(ctx, systemMsg, sb.String(), len(texts))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// request resolves the aligned response, falling back to the source text
// for any index the model omitted. Alignment holes are tolerated; a fully
// unparsable response is not.
func (p *OpenAI) request(ctx context.Context, systemMsg, userMsg string, sources []string) ([]string, error) {
	out, err := p.requestAligned(ctx, systemMsg, userMsg, len(sources))
	if err != nil {
		return nil, err
	}
	missing := 0
	for i := range out {
		if out[i] == "" {
			out[i] = sources[i]
			missing++
		}
	}
	if missing > 0 {
		log.Warn("provider omitted %d of %d items, kept source text for those", missing, len(sources))
	}
	return out, nil
}

func (p *OpenAI) requestAligned(ctx context.Context, systemMsg, userMsg string, n int) ([]string, error) {
	content, err := p.client.SimpleChat(ctx, userMsg, systemMsg)
	if err != nil {
		return nil, err
	}

	parsed, err := extractIndexedArray(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisaligned, err)
	}

	out := make([]string, n)
	for _, item := range parsed {
		if item.Index == nil {
			continue
		}
		if idx := *item.Index; idx >= 0 && idx < n {
			out[idx] = item.Text
		}
	}
	return out, nil
}

func writeNumbered(sb *strings.Builder, texts []string) {
	for i, t := range texts {
		fmt.Fprintf(sb, "%d. %s\n", i+1, t)
	}
}

// extractIndexedArray parses the model's JSON array, tolerating prose or
// code fences around it by falling back to the outermost bracket pair.
func extractIndexedArray(content string) ([]indexedText, error) {
	trimmed := strings.TrimSpace(content)

	var parsed []indexedText
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse JSON array: %w", err)
	}
	return parsed, nil
}
