// Package remote is the HTTP client of the definition service.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/at-ishikawa/palabras/internal/config"
	"github.com/at-ishikawa/palabras/internal/dictionary"
)

const userAgent = "palabras/1.0"

// StatusError is an unexpected HTTP status from the definition service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code: %d, body: %s", e.Code, e.Body)
}

type definitionsResponse struct {
	Definitions []string `json:"definitions"`
	RAELink     string   `json:"rae_link,omitempty"`
}

// Client implements dictionary.Source.
type Client struct {
	httpClient *resty.Client
}

var _ dictionary.Source = (*Client)(nil)

func NewClient(cfg config.DefinitionsConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)

	return &Client{
		httpClient: client,
	}
}

// Fetch returns the definitions of word.
// A 404 wraps dictionary.ErrNotFound; every other failure is transient.
func (c *Client) Fetch(ctx context.Context, word string) (dictionary.Definition, error) {
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("word", word).
		Get("/definitions/{word}")
	if err != nil {
		return dictionary.Definition{}, fmt.Errorf("client.R.Get > %w", err)
	}

	switch {
	case res.StatusCode() == http.StatusNotFound:
		return dictionary.Definition{}, fmt.Errorf("GET /definitions/%s > %w", word, dictionary.ErrNotFound)
	case !res.IsSuccess():
		return dictionary.Definition{}, &StatusError{Code: res.StatusCode(), Body: string(res.Body())}
	}

	var body definitionsResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return dictionary.Definition{}, fmt.Errorf("json.Unmarshal > %w", err)
	}
	return dictionary.Definition{
		Definitions:  body.Definitions,
		ExternalLink: body.RAELink,
	}, nil
}
