package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/danmuck/reservectl/internal/admin"
	"github.com/danmuck/reservectl/internal/booking"
	"github.com/danmuck/reservectl/internal/config"
	"github.com/danmuck/reservectl/internal/guard"
	"github.com/danmuck/reservectl/internal/observability"
	"github.com/danmuck/reservectl/internal/server"
	"github.com/danmuck/reservectl/internal/store"
)

const defaultConfigPath = "cmd/reservectl/config.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "server config path")
	initConfig := flag.Bool("init-config", false, "write a config template and exit")
	force := flag.Bool("force", false, "overwrite existing config file with -init-config")
	flag.Parse()

	if *initConfig {
		if err := config.WriteTemplate(*configPath, "server", *force); err != nil {
			log.Fatal(err)
		}
		log.Printf("Wrote server config template to %s", *configPath)
		return
	}

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.InitLogger(cfg.Name)
	observability.RegisterMetrics()

	if err := store.Bootstrap(cfg.DataDir, config.SeedFlights(cfg)); err != nil {
		logger.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("store bootstrap failed")
	}
	tables := store.Open(cfg.DataDir)
	svc := booking.NewService(tables, guard.New(), logger)

	streamLis, err := net.Listen("tcp", cfg.StreamAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.StreamAddr).Msg("stream listen failed")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", cfg.DatagramAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.DatagramAddr).Msg("datagram addr invalid")
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.DatagramAddr).Msg("datagram listen failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streamSrv := server.NewStreamServer(svc, cfg.MaxConns, logger)
	dgramSrv := server.NewDatagramServer(svc, cfg.DatagramWorkers, logger)
	adminSrv := admin.New(cfg.Name, svc, cfg.CorsOrigins, logger)

	logger.Info().
		Str("stream_addr", cfg.StreamAddr).
		Str("datagram_addr", cfg.DatagramAddr).
		Str("admin_addr", cfg.AdminAddr).
		Str("data_dir", cfg.DataDir).
		Msg("reservectl up")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return streamSrv.Serve(ctx, streamLis) })
	g.Go(func() error { return dgramSrv.Serve(ctx, udpConn) })
	g.Go(func() error { return adminSrv.Serve(ctx, cfg.AdminAddr) })

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("reservectl down")
}
