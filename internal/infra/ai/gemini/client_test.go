package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/forensiq/internal/domain/ai"
)

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		Temperature     float32 `json:"temperature"`
		MaxOutputTokens int32   `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func TestSummarizeSendsPromptAndJoinsParts(t *testing.T) {
	var (
		got  generateRequest
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  brute force "},{"text":"then login  "}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClientWithBaseURL(context.Background(), "k", "", srv.URL)
	require.NoError(t, err)

	out, err := c.Summarize(context.Background(), "timeline here")
	require.NoError(t, err)
	assert.Equal(t, "brute force then login", out)

	assert.True(t, strings.HasSuffix(path, "/models/"+defaultModel+":generateContent"), path)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "timeline here", got.Contents[0].Parts[0].Text)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Contains(t, got.SystemInstruction.Parts[0].Text, "digital forensics")
	assert.InDelta(t, 0.2, got.GenerationConfig.Temperature, 0.001)
	assert.Equal(t, int32(500), got.GenerationConfig.MaxOutputTokens)
}

func TestSummarizeEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, err := NewClientWithBaseURL(context.Background(), "k", "gemini-2.5-pro", srv.URL)
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "p")
	assert.ErrorIs(t, err, domai.ErrEmptyCompletion)
}

func TestSummarizeMapsResourceExhaustedToQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewClientWithBaseURL(context.Background(), "k", "", srv.URL)
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}
