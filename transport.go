package stripe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	jperrors "github.com/JohnPlummer/jp-go-errors"
)

// HTTPRequest is one fully materialised attempt.
type HTTPRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// HTTPResponse is what a transport returns for an attempt.
type HTTPResponse struct {
	StatusCode int
	Body       []byte

	// ShouldRetry carries the Service's Stripe-Should-Retry header.
	ShouldRetry RetryHint
}

// HTTPClient performs single HTTP exchanges. Implementations must be safe for
// concurrent use and must honor ctx cancellation. Retries, headers and
// decoding are the Client's job, not the transport's.
//
// Example:
//
//	type recordingTransport struct{ next stripe.HTTPClient }
//
//	func (t *recordingTransport) Execute(ctx context.Context, req *stripe.HTTPRequest) (*stripe.HTTPResponse, error) {
//	    log.Println(req.Method, req.URL)
//	    return t.next.Execute(ctx, req)
//	}
type HTTPClient interface {
	Execute(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// ShouldRetryHeader is the response header carrying the Service's retry hint.
const ShouldRetryHeader = "Stripe-Should-Retry"

// DefaultHTTPTimeout bounds a single attempt made by the default transport.
const DefaultHTTPTimeout = 80 * time.Second

// NetHTTPClient adapts *http.Client to HTTPClient.
type NetHTTPClient struct {
	client *http.Client
}

// NewNetHTTPClient wraps client, or a client with DefaultHTTPTimeout when nil.
func NewNetHTTPClient(client *http.Client) *NetHTTPClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &NetHTTPClient{client: client}
}

// Execute implements HTTPClient.
func (c *NetHTTPClient) Execute(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = req.Header.Clone()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if ctx.Err() == nil && errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w",
				jperrors.NewTimeoutError("stripe request timed out", req.Method+" "+httpReq.URL.Path, c.client.Timeout),
				err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &HTTPResponse{
		StatusCode:  resp.StatusCode,
		Body:        data,
		ShouldRetry: parseRetryHeader(resp.Header.Get(ShouldRetryHeader)),
	}, nil
}

func parseRetryHeader(value string) RetryHint {
	if value == "" {
		return HintNone
	}
	retry, err := strconv.ParseBool(value)
	if err != nil {
		return HintNone
	}
	return HintFromBool(retry)
}
