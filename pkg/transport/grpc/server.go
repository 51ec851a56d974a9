package grpc

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/despegar/galera-go-client/pkg/observability/tracing"
	"github.com/despegar/galera-go-client/pkg/transport"
)

// Server implements transport.RPCServer over gRPC using a hand-registered
// JSON codec, trimmed to the single read-only GetStatus RPC (spec.md §1
// scopes join/leave/replication out: Galera membership comes from wsrep
// state, never from peer routers).
type Server struct {
	bind   string
	lis    net.Listener
	srv    *grpc.Server
	tlsCfg *tls.Config
}

func NewServer(bind string) *Server { return &Server{bind: bind} }

// UseTLS enables TLS for the gRPC server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

type empty struct{}
type statusBlob struct {
	Data []byte `json:"data"`
}

type managementServer interface {
	GetStatus(ctx context.Context, in *empty) (*statusBlob, error)
}

type mgmtImpl struct{ status transport.StatusFunc }

func (m *mgmtImpl) GetStatus(ctx context.Context, _ *empty) (*statusBlob, error) {
	ctx, end := tracing.StartSpan(ctx, "grpc.status")
	defer end()
	b, err := m.status(ctx)
	if err != nil {
		return nil, err
	}
	return &statusBlob{Data: b}, nil
}

var _Management_serviceDesc = grpc.ServiceDesc{
	ServiceName: "galera.v1.Management",
	HandlerType: (*managementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _Management_GetStatus_Handler},
	},
}

func _Management_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(managementServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/galera.v1.Management/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(managementServer).GetStatus(ctx, req.(*empty))
	}
	return interceptor(ctx, in, info, handler)
}

func (s *Server) Start(ctx context.Context, status transport.StatusFunc) error {
	lis, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}
	s.lis = lis

	var opts []grpc.ServerOption
	opts = append(opts, grpc.ForceServerCodec(jsonCodec{}))
	opts = append(opts, grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: 5 * time.Second, PermitWithoutStream: true}))
	opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{Time: 30 * time.Second, Timeout: 10 * time.Second}))
	if s.tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg)))
	}
	srv := grpc.NewServer(opts...)
	s.srv = srv

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	srv.RegisterService(&_Management_serviceDesc, &mgmtImpl{status: status})

	go func() {
		<-ctx.Done()
		ch := make(chan struct{})
		go func() { srv.GracefulStop(); close(ch) }()
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			srv.Stop()
		}
	}()
	go func() { _ = srv.Serve(lis) }()
	return nil
}

func (s *Server) Addr() string { return s.bind }

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ch := make(chan struct{})
	go func() { s.srv.GracefulStop(); close(ch) }()
	select {
	case <-ch:
	case <-ctx.Done():
		s.srv.Stop()
	}
	s.srv = nil
	if s.lis != nil {
		_ = s.lis.Close()
		s.lis = nil
	}
	return nil
}

var _ transport.RPCServer = (*Server)(nil)
