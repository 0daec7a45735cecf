package wunderground

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/devskill-org/weatherdisplay/document"
)

// DefaultBaseURL is the root of the Weather Underground API.
const DefaultBaseURL = "http://api.wunderground.com/api"

// DefaultRequestsPerMinute matches the free developer plan.
const DefaultRequestsPerMinute = 10

// Client represents a client for the Weather Underground API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a new client for the Weather Underground API
func NewClient(apiKey string) *Client {
	return NewClientWithHTTPClient(&http.Client{
		Timeout: 30 * time.Second,
	}, apiKey)
}

// NewClientWithHTTPClient creates a new client with a custom HTTP client
func NewClientWithHTTPClient(httpClient *http.Client, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerMinute/60.0), 1),
	}
}

// SetBaseURL sets the base URL for the API (useful for testing)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetRateLimit sets how many requests per minute the client may issue.
// A non-positive rate disables pacing.
func (c *Client) SetRateLimit(perMinute float64, burst int) {
	if perMinute <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perMinute/60), max(burst, 1))
}

// FetchForecast retrieves the forecast feature for query.
func (c *Client) FetchForecast(ctx context.Context, query string, format Format) (document.Node, error) {
	return c.FetchDocument(ctx, FeatureForecast, query, format)
}

// FetchDocument retrieves a data feature for query and parses the response.
// Errors reported in the response body are returned as *APIError.
func (c *Client) FetchDocument(ctx context.Context, feature, query string, format Format) (document.Node, error) {
	if format != FormatXML && format != FormatJSON {
		return nil, &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}

	reqURL, err := c.buildURL(feature, query, string(format), nil)
	if err != nil {
		return nil, err
	}

	accept := "application/xml, text/xml"
	if format == FormatJSON {
		accept = "application/json"
	}

	body, err := c.get(ctx, "fetch "+feature, reqURL, accept)
	if err != nil {
		return nil, err
	}

	var doc document.Node
	if format == FormatJSON {
		doc, err = document.ParseJSON(bytes.NewReader(body))
	} else {
		doc, err = document.ParseXML(bytes.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", feature, err)
	}

	if apiErr := responseError(doc); apiErr != nil {
		return nil, apiErr
	}
	return doc, nil
}

// FetchRadar retrieves a radar image for query and returns its bytes unchanged.
func (c *Client) FetchRadar(ctx context.Context, query string, opts RadarOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("width", strconv.Itoa(opts.Width))
	params.Set("height", strconv.Itoa(opts.Height))
	if opts.NewMaps {
		params.Set("newmaps", "1")
	}
	if opts.Animated {
		params.Set("num", strconv.Itoa(opts.Frames))
		params.Set("delay", strconv.Itoa(opts.Delay))
	}

	reqURL, err := c.buildURL(opts.feature(), query, opts.ImageFormat, params)
	if err != nil {
		return nil, err
	}

	return c.get(ctx, "fetch "+opts.feature(), reqURL, "image/*")
}

// get performs a paced GET request and returns the response body.
func (c *Client) get(ctx context.Context, operation, reqURL, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Operation: operation, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}

// buildURL constructs {base}/{key}/{feature}/q/{query}.{ext}
func (c *Client) buildURL(feature, query, ext string, params url.Values) (string, error) {
	if c.apiKey == "" {
		return "", &ValidationError{Field: "api_key", Message: "API key is required"}
	}
	if err := ValidateQuery(query); err != nil {
		return "", err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}

	u.Path = fmt.Sprintf("%s/%s/%s/q/%s.%s", u.Path, c.apiKey, feature, query, ext)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String(), nil
}

// ValidateQuery checks that a location query can be placed in a request path.
// Accepted forms include "CA/San_Francisco", "60290", "37.8,-122.4", "KJFK",
// "pws:KCASANFR70" and "autoip"; the API decides whether the location exists.
func ValidateQuery(query string) error {
	if query == "" {
		return &ValidationError{Field: "query", Message: "location query is required"}
	}
	if strings.IndexFunc(query, unicode.IsSpace) >= 0 {
		return &ValidationError{Field: "query", Message: fmt.Sprintf("location query %q must not contain whitespace, use underscores", query)}
	}
	if strings.ContainsAny(query, "?#") {
		return &ValidationError{Field: "query", Message: fmt.Sprintf("location query %q must not contain '?' or '#'", query)}
	}
	return nil
}

// responseError extracts an <error> element reported by the API.
func responseError(doc document.Node) *APIError {
	node, ok := document.First(doc, "error")
	if !ok {
		return nil
	}

	apiErr := &APIError{StatusCode: http.StatusOK}
	if t, ok := document.First(node, "type"); ok {
		apiErr.Type = t.Text()
	}
	if d, ok := document.First(node, "description"); ok {
		apiErr.Message = d.Text()
	}
	if apiErr.Message == "" {
		apiErr.Message = node.Text()
	}
	return apiErr
}
