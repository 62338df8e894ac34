package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/pkg/logger"
)

const searchPath = "/api/v2/search"

// Client is the HTTP client for the search backend. The federated
// fan-out is a single call: the backend fans out to the forward_to list
// itself, so the caller has exactly one blocking request per search.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *TokenSigner
	log        *logger.Logger
}

// ClientConfig configures the backend client.
type ClientConfig struct {
	// BaseURL is the address of the backend entry node.
	BaseURL string

	// Timeout bounds the whole call. There is no partial-result
	// timeout; an expired call degrades as a connection failure.
	Timeout time.Duration

	// MaxIdleConns controls the keep-alive pool across all hosts.
	MaxIdleConns int

	// MaxConnsPerHost limits connections per host. Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout closes idle keep-alive connections.
	IdleConnTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         120 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig, signer *TokenSigner, log *logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost / 5,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		signer:  signer,
		log:     log,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// Search dispatches the fan-out envelope and decodes the response body.
// Transport-level failures come back as connection errors so the caller
// can degrade instead of crashing the whole request.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.InternalError("marshaling search request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.InternalError("creating search request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	auth, err := c.signer.AuthorizationHeader()
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", auth)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ConnectionError("search backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ConnectionError("reading search response", err)
	}

	if resp.StatusCode >= 500 {
		return nil, apperrors.ConnectionError(
			fmt.Sprintf("search backend returned HTTP %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest,
			fmt.Sprintf("search backend rejected the request: HTTP %d: %s", resp.StatusCode, string(body)))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.DecodeError("unmarshaling search response", err)
	}

	c.log.Debug("backend search completed",
		"targets", len(req.ForwardTo),
		"files", len(result.Files),
		"match_count", result.MatchCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &result, nil
}
