package grpc

import (
	"net"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ReconcilerService is the health service name tracking the reconciliation loop.
const ReconcilerService = "livepoll.Reconciler"

type App struct {
	healthServer *health.Server
	srv          *grpc.Server
}

func NewGrpc() *App {
	server := &App{
		healthServer: health.NewServer(),
		srv:          grpc.NewServer(),
	}

	healthpb.RegisterHealthServer(server.srv, server.healthServer)
	server.healthServer.SetServingStatus(ReconcilerService, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(server.srv)

	return server
}

// ReportTick marks the reconciler unhealthy when every tenant of a non-empty tick failed.
func (v *App) ReportTick(report services.TickReport) {
	status := healthpb.HealthCheckResponse_SERVING
	if report.Tenants > 0 && report.Failed == report.Tenants {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	v.healthServer.SetServingStatus(ReconcilerService, status)
}

func (v *App) Listen() error {
	listener, err := net.Listen("tcp", viper.GetString("grpc_bind"))
	if err != nil {
		return err
	}

	return v.srv.Serve(listener)
}

func (v *App) Stop() {
	v.healthServer.Shutdown()
	v.srv.GracefulStop()
	log.Info().Msg("gRPC server stopped.")
}
