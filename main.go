package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	network "github.com/shaneVR097/v2x-collision-warning-simulation/communication"
	"github.com/shaneVR097/v2x-collision-warning-simulation/manager"
	"github.com/shaneVR097/v2x-collision-warning-simulation/web"
)

func main() {
	bridgeAddr := flag.String("bridge", "localhost:5555", "Listen address for the simulation relay")
	webAddr := flag.String("web", ":8080", "Listen address for the monitoring feed")
	maxDuration := flag.Float64("duration", 150, "Maximum simulated duration in seconds")
	stepLength := flag.Float64("step-length", 0.2, "Simulation step length in seconds")
	reportDir := flag.String("report-dir", "reports", "Directory for the final safety report")
	verbose := flag.Bool("verbose", false, "Log every simulation step")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := manager.DefaultConfig()
	cfg.MaxDuration = *maxDuration
	cfg.StepLength = *stepLength

	listener, err := net.Listen("tcp", *bridgeAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", *bridgeAddr, err)
	}
	defer listener.Close()

	log.Infof("safety monitor waiting for simulation relay on %s...", *bridgeAddr)

	conn, err := listener.Accept()
	if err != nil {
		log.Fatalf("failed to accept relay connection: %v", err)
	}

	engine := network.NewClient(conn)
	sm, err := manager.NewSafetyManager(cfg, engine)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log.Infof("relay connected, run %s starting", sm.RunID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Unblocks a pending frame read when the run is cancelled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return web.NewServer(sm).Start(ctx, *webAddr)
	})

	g.Go(func() error {
		defer stop()

		runSteps(ctx, sm, cfg.MaxDuration)

		// Best-effort report, also after a lost connection.
		report, filename := sm.FinalizeAndReport()
		fmt.Println(report)

		path, err := manager.WriteReport(*reportDir, filename, report)
		if err != nil {
			log.WithError(err).Error("failed to persist safety report")
			return nil
		}
		log.Infof("safety report saved to %s", path)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("monitor exited with error: %v", err)
	}
}

func runSteps(ctx context.Context, sm *manager.SafetyManager, maxDuration float64) {
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, stopping run")
			return
		default:
		}

		if err := sm.Step(); err != nil {
			log.WithError(err).Error("engine connection lost")
			return
		}

		if sm.CurrentSimTime() >= maxDuration {
			log.Infof("run complete after %.1f simulated seconds", sm.CurrentSimTime())
			return
		}
	}
}
