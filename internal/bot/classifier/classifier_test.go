// internal/bot/classifier/classifier_test.go
package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybot/internal/common/config"
	"applybot/internal/common/logger"
)

func testClient(t *testing.T, baseURL string) *Client {
	cfg := config.ClassifierConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.1,
		MaxTokens:   5,
		Timeout:     5000,
	}
	return New(cfg, logger.NewTestLogger(t))
}

func verdictServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestIsRelevant_TrueVerdict(t *testing.T) {
	var captured chatRequest
	srv := verdictServer(t, "true", &captured)
	defer srv.Close()

	c := testClient(t, srv.URL)
	relevant := c.IsRelevant(context.Background(), "Backend Engineer", "Senior Go Developer")

	assert.True(t, relevant)
	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	assert.Equal(t, 0.1, captured.Temperature)
	assert.Equal(t, 5, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "Senior Go Developer")
	assert.Contains(t, captured.Messages[1].Content, "Backend Engineer")
}

func TestIsRelevant_FalseVerdict(t *testing.T) {
	srv := verdictServer(t, "false", nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.False(t, c.IsRelevant(context.Background(), "Backend Engineer", "Dental Hygienist"))
}

func TestIsRelevant_VerdictParsingIsTolerantOfWhitespaceAndCase(t *testing.T) {
	srv := verdictServer(t, "  False \n", nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.False(t, c.IsRelevant(context.Background(), "Backend Engineer", "Barista"))
}

func TestIsRelevant_FailsOpenOnMalformedVerdict(t *testing.T) {
	srv := verdictServer(t, "probably relevant, yes", nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.True(t, c.IsRelevant(context.Background(), "Backend Engineer", "Barista"))
}

func TestIsRelevant_FailsOpenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.True(t, c.IsRelevant(context.Background(), "Backend Engineer", "Barista"))
}

func TestIsRelevant_FailsOpenOnUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := testClient(t, srv.URL)
	assert.True(t, c.IsRelevant(context.Background(), "Backend Engineer", "Barista"))
}

func TestIsRelevant_FailsOpenOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	assert.True(t, c.IsRelevant(context.Background(), "Backend Engineer", "Barista"))
}
