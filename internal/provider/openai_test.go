package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/llm"
)

// newChatServer serves a fixed assistant reply for every chat completion
// request and records the last request body.
func newChatServer(t *testing.T, reply string) (*httptest.Server, *string) {
	t.Helper()
	var lastPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		lastPrompt = req.Messages[len(req.Messages)-1].Content

		resp := llm.ChatResponse{
			Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: reply}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	return server, &lastPrompt
}

func newTestOpenAI(t *testing.T, serverURL string) *OpenAI {
	t.Helper()
	p, err := NewOpenAI(&llm.Config{
		APIKey: "test-key",
		APIURL: serverURL,
		Model:  "test-model",
	}, language.English)
	require.NoError(t, err)
	return p
}

func TestOpenAI_Translate_AlignsByIndex(t *testing.T) {
	server, lastPrompt := newChatServer(t, `[{"index":0,"text":"甲"},{"index":1,"text":"乙"}]`)
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	out, err := p.Translate(context.Background(), []string{"first", "second"}, language.Chinese, "keep markup")
	require.NoError(t, err)
	assert.Equal(t, []string{"甲", "乙"}, out)

	// The prompt numbers items 1-based and carries the instructions.
	assert.Contains(t, *lastPrompt, "1. first")
	assert.Contains(t, *lastPrompt, "2. second")
	assert.Contains(t, *lastPrompt, "keep markup")
}

func TestOpenAI_Translate_ToleratesFencesAndReordering(t *testing.T) {
	reply := "Here you go:\n```json\n[{\"index\":1,\"text\":\"乙\"},{\"index\":0,\"text\":\"甲\"}]\n```"
	server, _ := newChatServer(t, reply)
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	out, err := p.Translate(context.Background(), []string{"first", "second"}, language.Chinese, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"甲", "乙"}, out)
}

func TestOpenAI_Translate_OmittedIndexKeepsSourceText(t *testing.T) {
	server, _ := newChatServer(t, `[{"index":0,"text":"甲"},{"index":2,"text":"丙"}]`)
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	out, err := p.Translate(context.Background(), []string{"first", "second", "third"}, language.Chinese, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"甲", "second", "丙"}, out)
}

func TestOpenAI_Translate_OutOfRangeIndexIgnored(t *testing.T) {
	server, _ := newChatServer(t, `[{"index":0,"text":"甲"},{"index":9,"text":"junk"},{"index":-1,"text":"junk"}]`)
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	out, err := p.Translate(context.Background(), []string{"first", "second"}, language.Chinese, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"甲", "second"}, out)
}

func TestOpenAI_Translate_UnparsableResponseIsMisaligned(t *testing.T) {
	server, _ := newChatServer(t, "Sorry, I cannot help with that.")
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	_, err := p.Translate(context.Background(), []string{"first"}, language.Chinese, "")
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestOpenAI_Translate_EmptyInput(t *testing.T) {
	p := newTestOpenAI(t, "http://localhost:1")
	out, err := p.Translate(context.Background(), nil, language.Chinese, "")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestOpenAI_BackTranslate_MissingSlotsStayEmpty(t *testing.T) {
	server, _ := newChatServer(t, `[{"index":1,"text":"second back"}]`)
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	out, err := p.BackTranslate(context.Background(), []string{"甲", "乙"})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "second back"}, out)
}

func TestOpenAI_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer server.Close()

	p := newTestOpenAI(t, server.URL)
	_, err := p.Translate(context.Background(), []string{"first"}, language.Chinese, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestNewOpenAI_RequiresConfig(t *testing.T) {
	_, err := NewOpenAI(&llm.Config{}, language.English)
	assert.Error(t, err)
}

func TestExtractIndexedArray(t *testing.T) {
	parsed, err := extractIndexedArray(`[{"index":0,"text":"a"}]`)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.NotNil(t, parsed[0].Index)
	assert.Equal(t, 0, *parsed[0].Index)
	assert.Equal(t, "a", parsed[0].Text)

	parsed, err = extractIndexedArray("prose before [{\"index\":0,\"text\":\"a\"}] prose after")
	require.NoError(t, err)
	assert.Len(t, parsed, 1)

	_, err = extractIndexedArray("no array here")
	assert.Error(t, err)

	_, err = extractIndexedArray("[not json]")
	assert.Error(t, err)

	// Entries without an index are kept but unusable for alignment.
	parsed, err = extractIndexedArray(`[{"text":"a"}]`)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Nil(t, parsed[0].Index)
}
