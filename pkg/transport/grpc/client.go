package grpc

import (
	"context"
	"crypto/tls"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/despegar/galera-go-client/pkg/transport"
)

// Client implements transport.RPCClient, calling GetStatus on another
// router instance through a cached connection (ConnManager).
type Client struct {
	timeout time.Duration
	tlsCfg  *tls.Config
	cm      *ConnManager
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{timeout: timeout}
}

func (c *Client) dialCtx(ctx context.Context, target string) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
		grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig, MinConnectTimeout: 500 * time.Millisecond}),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 20 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
		grpc.WithBlock(),
	}
	if c.tlsCfg != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return grpc.DialContext(ctx, target, opts...)
}

func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	cc, rel, err := c.getConn(cctx, addr)
	if err != nil {
		return nil, err
	}
	defer rel()
	out := new(statusBlob)
	if err := cc.Invoke(cctx, "/galera.v1.Management/GetStatus", &empty{}, out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

var _ transport.RPCClient = (*Client)(nil)

// UseTLS sets TLS config for the client.
func (c *Client) UseTLS(cfg *tls.Config) *Client { c.tlsCfg = cfg; return c }

func (c *Client) getConn(ctx context.Context, addr string) (*grpc.ClientConn, func(), error) {
	if c.cm == nil {
		c.cm = NewConnManager(30*time.Second, c.dialCtx)
	}
	return c.cm.Get(ctx, addr)
}
