// Package backend implements the single-backend KV server and client stub
// (spec.md §4.A/§4.B): a storage.Engine wrapped in a net/rpc service, plus
// a standard gRPC health-check service the keeper probes for liveness.
package backend

import (
	"context"
	"net"
	"net/rpc"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"go.opentelemetry.io/otel/trace"

	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/metrics"
	"github.com/neogan74/tribbler/internal/storage"
	"github.com/neogan74/tribbler/internal/telemetry"
)

// ServiceName is the net/rpc registration name this backend exposes.
const ServiceName = "Backend"

// Server exposes a storage.Engine over net/rpc. Every method is wrapped
// with a Prometheus counter and an OpenTelemetry span, since every backend
// call is the system's suspension point.
type Server struct {
	engine storage.Engine
	log    logger.Logger
	tracer trace.Tracer
}

// NewServer wraps engine for RPC serving.
func NewServer(engine storage.Engine, log logger.Logger) *Server {
	return &Server{
		engine: engine,
		log:    log,
		tracer: telemetry.GetTracer("tribbler.backend"),
	}
}

func (s *Server) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BackendOpsTotal.WithLabelValues(op, status).Inc()
}

func (s *Server) Get(args *KeyArgs, reply *ValueReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.Get")
	defer span.End()
	start := time.Now()
	v, ok, err := s.engine.Get(ctx, args.Key)
	metrics.BackendOpDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	s.observe("get", err)
	if err != nil {
		return err
	}
	if ok {
		reply.Value = v
	}
	return nil
}

func (s *Server) Set(args *KeyValueArgs, reply *BoolReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.Set")
	defer span.End()
	start := time.Now()
	err := s.engine.Set(ctx, args.Key, args.Value)
	metrics.BackendOpDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	s.observe("set", err)
	reply.Value = err == nil
	return err
}

func (s *Server) Keys(args *PatternArgs, reply *StringListReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.Keys")
	defer span.End()
	keys, err := s.engine.Keys(ctx, args.Prefix, args.Suffix)
	s.observe("keys", err)
	if err != nil {
		return err
	}
	reply.List = keys
	return nil
}

func (s *Server) ListGet(args *KeyArgs, reply *StringListReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.ListGet")
	defer span.End()
	list, err := s.engine.ListGet(ctx, args.Key)
	s.observe("list_get", err)
	if err != nil {
		return err
	}
	reply.List = list
	return nil
}

func (s *Server) ListAppend(args *KeyValueArgs, reply *BoolReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.ListAppend")
	defer span.End()
	err := s.engine.ListAppend(ctx, args.Key, args.Value)
	s.observe("list_append", err)
	reply.Value = err == nil
	return err
}

func (s *Server) ListRemove(args *ListRemoveArgs, reply *ListRemoveReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.ListRemove")
	defer span.End()
	n, err := s.engine.ListRemove(ctx, args.Key, args.Value)
	s.observe("list_remove", err)
	if err != nil {
		return err
	}
	reply.Removed = uint32(n)
	return nil
}

func (s *Server) ListKeys(args *PatternArgs, reply *StringListReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.ListKeys")
	defer span.End()
	keys, err := s.engine.ListKeys(ctx, args.Prefix, args.Suffix)
	s.observe("list_keys", err)
	if err != nil {
		return err
	}
	reply.List = keys
	return nil
}

func (s *Server) Clock(args *ClockArgs, reply *ClockReply) error {
	ctx, span := s.tracer.Start(context.Background(), "backend.Clock")
	defer span.End()
	v, err := s.engine.Clock(ctx, args.AtLeast)
	s.observe("clock", err)
	if err != nil {
		return err
	}
	reply.Timestamp = v
	return nil
}

// healthServer implements grpc_health_v1.HealthServer, always reporting
// SERVING: if this process can answer the RPC at all, its storage.Engine
// is reachable (no partial-degradation concept for a single backend).
type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer
}

func (healthServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (healthServer) Watch(_ *grpc_health_v1.HealthCheckRequest, _ grpc_health_v1.Health_WatchServer) error {
	return nil
}

// ListenAndServe registers s under ServiceName and serves net/rpc on
// rpcAddr, while also serving the standard gRPC health-check service on
// healthAddr so the keeper can probe liveness with a stock gRPC client.
// Blocks until ctx is cancelled.
func ListenAndServe(ctx context.Context, rpcAddr, healthAddr string, s *Server) error {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, s); err != nil {
		return err
	}

	rpcListener, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		return err
	}

	healthListener, err := net.Listen("tcp", healthAddr)
	if err != nil {
		rpcListener.Close()
		return err
	}

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer{})

	errCh := make(chan error, 2)
	go func() {
		rpcServer.Accept(rpcListener)
		errCh <- nil
	}()
	go func() { errCh <- grpcServer.Serve(healthListener) }()

	select {
	case <-ctx.Done():
		rpcListener.Close()
		grpcServer.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		rpcListener.Close()
		grpcServer.GracefulStop()
		return err
	}
}
