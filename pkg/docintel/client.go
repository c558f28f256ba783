package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/provalab/exam-cli/internal/resilience"
)

// Client defines the layout-analysis operations.
type Client interface {
	// Analyze submits a document and polls until the layout result is ready.
	Analyze(ctx context.Context, document []byte, contentType string) (*AnalyzeResult, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithModel selects the provider model.
func WithModel(model string) Option {
	return func(c *httpClient) { c.model = model }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithPollInterval overrides the result polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *httpClient) { c.pollInterval = d }
}

type httpClient struct {
	endpoint     string
	apiKey       string
	model        string
	pollInterval time.Duration
	limiter      *rate.Limiter
	http         *http.Client
}

// NewClient creates a layout-analysis client for the given endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) Client {
	c := &httpClient{
		endpoint:     endpoint,
		apiKey:       apiKey,
		model:        "prebuilt-layout",
		pollInterval: 2 * time.Second,
		limiter:      rate.NewLimiter(2, 2),
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Analyze(ctx context.Context, document []byte, contentType string) (*AnalyzeResult, error) {
	opURL, err := c.submit(ctx, document, contentType)
	if err != nil {
		return nil, err
	}
	return c.poll(ctx, opURL)
}

// submit starts the analysis and returns the operation URL to poll.
func (c *httpClient) submit(ctx context.Context, document []byte, contentType string) (string, error) {
	reqURL := fmt.Sprintf("%s/documentModels/%s:analyze", c.endpoint, c.model)

	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "docintel: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(document))
		if err != nil {
			return "", eris.Wrap(err, "docintel: create request")
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrap(err, "docintel: submit"), 0)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			err := eris.Errorf("docintel: submit status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return "", resilience.NewTransientError(err, resp.StatusCode)
			}
			return "", err
		}

		opURL := resp.Header.Get("Operation-Location")
		if opURL == "" {
			return "", eris.New("docintel: missing Operation-Location header")
		}
		return opURL, nil
	})
}

// poll fetches the operation until it succeeds or fails.
func (c *httpClient) poll(ctx context.Context, opURL string) (*AnalyzeResult, error) {
	for {
		env, err := c.fetch(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch env.Status {
		case "succeeded":
			if env.AnalyzeResult == nil {
				return nil, eris.New("docintel: succeeded without a result")
			}
			return env.AnalyzeResult, nil
		case "failed":
			if env.Error != nil {
				return nil, eris.Errorf("docintel: analysis failed: %s: %s", env.Error.Code, env.Error.Message)
			}
			return nil, eris.New("docintel: analysis failed")
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "docintel: poll")
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *httpClient) fetch(ctx context.Context, opURL string) (*AnalyzeResponse, error) {
	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*AnalyzeResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "docintel: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "docintel: create poll request")
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "docintel: poll"), 0)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "docintel: read poll body")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("docintel: poll status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		var env AnalyzeResponse
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, eris.Wrap(err, "docintel: unmarshal poll body")
		}
		return &env, nil
	})
}
