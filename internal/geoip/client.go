package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/netsweep/netsweep/internal/errors"
)

// FetchTimeout bounds a single provider lookup. A fetch that has not
// answered within this window counts as failed; no retry is attempted.
const FetchTimeout = 10 * time.Second

const defaultBaseURL = "https://ipapi.co"

// FetchResult holds the raw provider response for one IP before
// classification.
type FetchResult struct {
	ASN     string
	ISP     string
	Org     string
	Country string
	City    string
	Region  string
}

// Fetcher is the external GeoIP lookup capability consumed by the Enricher.
type Fetcher interface {
	Fetch(ctx context.Context, ip string) (*FetchResult, error)
}

// Client fetches GeoIP metadata from the ipapi.co JSON endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a provider client. An empty baseURL selects the public
// ipapi.co endpoint; token is optional and sent as a bearer credential.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: FetchTimeout,
		},
	}
}

// ipapiResponse mirrors the subset of the ipapi.co payload we consume.
// ipapi.co reports the operator under "org"; it doubles as the ISP field.
type ipapiResponse struct {
	ASN         string `json:"asn"`
	Org         string `json:"org"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Region      string `json:"region"`
}

// Fetch performs one bounded lookup for the given IP. Rate limiting and
// non-success statuses are returned as typed errors so the cache can decide
// on its fallback.
func (c *Client) Fetch(ctx context.Context, ip string) (*FetchResult, error) {
	url := fmt.Sprintf("%s/%s/json/", c.baseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.WrapFetchError(errors.CodeFetchFailed, "failed to build request", ip, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapFetchError(errors.CodeFetchFailed, "provider request failed", ip, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.ErrRateLimited(ip)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.ErrBadStatus(ip, resp.StatusCode)
	}

	var payload ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.WrapFetchError(errors.CodeFetchFailed, "failed to decode response", ip, err)
	}

	return &FetchResult{
		ASN:     payload.ASN,
		ISP:     payload.Org,
		Org:     payload.Org,
		Country: payload.CountryCode,
		City:    payload.City,
		Region:  payload.Region,
	}, nil
}
