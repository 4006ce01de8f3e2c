// internal/bot/classifier/classifier.go
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
)

var (
	ErrClassifierUnavailable = errors.New("CLASSIFIER_UNAVAILABLE")
	ErrMalformedVerdict      = errors.New("MALFORMED_VERDICT")
)

// Client wraps the external text-classification service that judges whether
// a candidate job title matches the applicant's target role.
//
// The adapter fails open: any transport error, non-OK status, or response
// other than the single tokens "true"/"false" yields a relevant verdict.
// A classifier outage must never starve an applicant of candidates; missing
// a true-negative filter is cheaper than missing real opportunities.
type Client struct {
	cfg    config.ClassifierConfig
	client *http.Client
	logger logger.Logger
}

func New(cfg config.ClassifierConfig, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		// No client-level timeout; every call carries a context deadline.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "classifier"}),
	}
}

// IsRelevant reports whether candidateTitle is relevant to targetTitle.
func (c *Client) IsRelevant(ctx context.Context, targetTitle, candidateTitle string) bool {
	verdict, err := c.classify(ctx, targetTitle, candidateTitle)
	if err != nil {
		degraded := stderrors.NewClassifierUnavailableError(err)
		c.logger.WithError(degraded).Warn("relevance check degraded, failing open", map[string]interface{}{
			"targetTitle":    targetTitle,
			"candidateTitle": candidateTitle,
		})
		return true
	}
	return verdict
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) classify(ctx context.Context, targetTitle, candidateTitle string) (bool, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a job matching expert. Respond with only 'true' or 'false'.",
			},
			{
				Role: "user",
				Content: fmt.Sprintf(
					"Is the job title %q relevant or similar to %q? Consider job responsibilities and career level. Only respond with true or false.",
					candidateTitle, targetTitle,
				),
			},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, _ := json.Marshal(reqBody)
	callCtx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var apiResponse chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return false, fmt.Errorf("%w: decode error: %v", ErrClassifierUnavailable, err)
	}
	if len(apiResponse.Choices) == 0 {
		return false, fmt.Errorf("%w: empty choices", ErrMalformedVerdict)
	}

	// The contract is a constrained single-token response: strictly "true"
	// or "false". Anything else is a service failure.
	answer := strings.ToLower(strings.TrimSpace(apiResponse.Choices[0].Message.Content))
	switch answer {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrMalformedVerdict, answer)
	}
}
