// Package health reports liveness and readiness over HTTP and the gRPC
// health checking protocol.
package health

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/pawsen/library-org/internal/httpx"
)

var (
	ErrDatabaseDown = errors.New("database unreachable")
	ErrBrokerDown   = errors.New("event broker unreachable")
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus is satisfied by events.Publisher.
type BrokerStatus interface {
	Healthy() bool
}

type Checker struct {
	db     Pinger
	broker BrokerStatus
	log    *zap.Logger
}

// NewChecker builds a readiness checker. broker may be nil.
func NewChecker(db Pinger, broker BrokerStatus, log *zap.Logger) *Checker {
	return &Checker{db: db, broker: broker, log: log}
}

// Ready returns nil when the database answers and the broker, if any, is
// connected.
func (c *Checker) Ready(ctx context.Context) error {
	if err := c.db.Ping(ctx); err != nil {
		c.log.Error("Database health check failed", zap.Error(err))
		return ErrDatabaseDown
	}
	if c.broker != nil && !c.broker.Healthy() {
		c.log.Error("RabbitMQ health check failed")
		return ErrBrokerDown
	}
	return nil
}

// Liveness handles GET /healthz.
func (c *Checker) Liveness(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{"status": "ok"}, nil)
}

// Readiness handles GET /readyz.
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := c.Ready(r.Context()); err != nil {
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
}

// Server implements grpc.health.v1.Health on top of a Checker.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer
	checker *Checker
}

func NewServer(checker *Checker) *Server {
	return &Server{checker: checker}
}

func (s *Server) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if s.checker.Ready(ctx) != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

func (s *Server) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: s.status(ctx)}, nil
}

// Watch sends the current status once and returns.
func (s *Server) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.status(stream.Context())})
}

// NewGRPCServer returns a gRPC server with the health service registered.
func NewGRPCServer(checker *Checker, log *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	grpc_health_v1.RegisterHealthServer(srv, NewServer(checker))
	return srv
}

func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			log.Error("gRPC request failed", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			log.Debug("gRPC request completed", zap.String("method", info.FullMethod))
		}
		return resp, err
	}
}
