package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://www.ebi.ac.uk/ena/portal/api/filereport"
	defaultResult      = "read_run"
	defaultUserAgent   = "strainmanifest/dev"
	defaultHTTPTimeout = 60 * time.Second
	errorBodyLimit     = 512
)

// Client wraps the ENA portal filereport API.
type Client struct {
	baseURL   *url.URL
	result    string
	fields    []string
	userAgent string
	http      *http.Client
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	result     string
	fields     []string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// WithBaseURL overrides the filereport endpoint.
func WithBaseURL(raw string) Option {
	return func(o *clientOptions) { o.baseURL = raw }
}

// WithHTTPClient supplies the HTTP client used for requests. It takes
// precedence over WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = client }
}

// WithResult sets the portal result type, e.g. read_run.
func WithResult(result string) Option {
	return func(o *clientOptions) { o.result = result }
}

// WithFields sets the columns requested from the portal.
func WithFields(fields ...string) Option {
	return func(o *clientOptions) { o.fields = append([]string(nil), fields...) }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(o *clientOptions) { o.userAgent = agent }
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	options := clientOptions{
		baseURL:   defaultBaseURL,
		result:    defaultResult,
		userAgent: defaultUserAgent,
		timeout:   defaultHTTPTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	base := strings.TrimSpace(options.baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("fetch: base url %q must use http or https", base)
	}
	result := strings.TrimSpace(options.result)
	if result == "" {
		result = defaultResult
	}
	client := options.httpClient
	if client == nil {
		client = &http.Client{Timeout: options.timeout}
	}
	return &Client{
		baseURL:   baseURL,
		result:    result,
		fields:    options.fields,
		userAgent: strings.TrimSpace(options.userAgent),
		http:      client,
	}, nil
}

// URL returns the request URL for accession.
func (c *Client) URL(accession string) string {
	u := *c.baseURL
	query := u.Query()
	query.Set("accession", accession)
	query.Set("result", c.result)
	if len(c.fields) > 0 {
		query.Set("fields", strings.Join(c.fields, ","))
	}
	query.Set("format", "tsv")
	u.RawQuery = query.Encode()
	return u.String()
}

// Download streams the record table for accession into w and returns the
// number of bytes copied. Any non-2xx response is an error.
func (c *Client) Download(ctx context.Context, accession string, w io.Writer) (int64, error) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return 0, errors.New("accession is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(accession), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/tab-separated-values, text/plain")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", accession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return 0, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read response for %s: %w", accession, err)
	}
	return n, nil
}

// StatusError reports a non-2xx portal response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("portal returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("portal returned status %d: %s", e.StatusCode, e.Body)
}
