package httpjson

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/despegar/galera-go-client/pkg/transport"
)

// Client is a thin HTTP client for the /status endpoint, with retry and
// backoff for robustness against a momentarily unreachable router instance.
type Client struct {
	httpc     *http.Client
	transport *http.Transport
	isTLS     bool
}

// NewClient constructs a new Client with the given timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	tr := &http.Transport{}
	return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
	if c.transport != nil {
		c.transport.TLSClientConfig = cfg
	}
	c.isTLS = cfg != nil
	return c
}

func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
	scheme := "http"
	if c.isTLS {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/status", scheme, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
		} else {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
			} else {
				return io.ReadAll(resp.Body)
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
		}
	}
	return nil, lastErr
}

var _ transport.RPCClient = (*Client)(nil)
