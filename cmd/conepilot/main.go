package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conepilot/config"
	"conepilot/engine"
	"conepilot/messaging"
	"conepilot/store"
	"conepilot/www"

	"golang.org/x/crypto/bcrypt"
)

const version = "dev"

func main() {
	configPath := flag.String("config", "conepilot.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *port > 0 {
		cfg.Web.Port = *port
	}

	// Open database
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	seedAdminUser(db)

	// Create and start engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		LogFunc:    log.Printf,
		Debug:      *debug,
	})
	eng.Start()
	defer eng.Stop()

	// Telemetry uplink
	if cfg.Messaging.Enabled {
		msgClient := messaging.NewClient(&cfg.Messaging)
		defer msgClient.Close()
		if err := msgClient.Connect(); err != nil {
			log.Printf("messaging connect: %v (uplink disabled)", err)
		} else {
			hb := messaging.NewHeartbeater(msgClient, cfg.NodeID(), version, cfg.Messaging.EventTopic)
			hb.Start()
			defer hb.Stop()

			reporter := messaging.NewRunReporter(msgClient, cfg.NodeID(),
				cfg.Messaging.TelemetryTopic, cfg.Messaging.EventTopic, cfg.Messaging.ReportInterval)
			wireReporter(eng, reporter)
			reporter.Start()
			defer reporter.Stop()

			listener := messaging.NewCommandListener(msgClient, cfg.NodeID(),
				cfg.Messaging.CommandTopic, eng)
			if err := listener.Start(); err != nil {
				log.Printf("command listener: %v (remote control disabled)", err)
			}
		}
	}

	// Set up HTTP server
	router, stopWeb := www.NewRouter(eng)
	defer stopWeb()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}

	// Start HTTP server
	go func() {
		log.Printf("ConePilot listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	// Stop SSE event hub first so long-lived connections close
	stopWeb()

	// Graceful HTTP shutdown with 10s deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}

// wireReporter forwards engine events into the telemetry reporter.
func wireReporter(eng *engine.Engine, reporter *messaging.RunReporter) {
	eng.Events.Subscribe(func(evt engine.Event) {
		switch evt.Type {
		case engine.EventSimStateChanged:
			reporter.ObserveState(evt.Payload.(engine.SimStateChangedEvent).NewState)
		case engine.EventSimPose:
			reporter.ObservePose(evt.Payload.(engine.SimPoseEvent).Pose)
		case engine.EventSimTelemetry:
			reporter.ObserveTelemetry(evt.Payload.(engine.SimTelemetryEvent).Telemetry)
		case engine.EventSimStats:
			reporter.ObserveStats(evt.Payload.(engine.SimStatsEvent).Stats)
		case engine.EventSimPlacement:
			reporter.RecordPlacement()
		case engine.EventRunStarted:
			reporter.NotifyRun("started", evt.Payload.(engine.RunEvent).SessionID)
		case engine.EventRunStopped:
			reporter.NotifyRun("stopped", evt.Payload.(engine.RunEvent).SessionID)
		case engine.EventRunCompleted:
			reporter.NotifyRun("completed", evt.Payload.(engine.RunEvent).SessionID)
		}
	})
}

// seedAdminUser creates the default operator account on a fresh database.
func seedAdminUser(db *store.DB) {
	exists, err := db.AdminUserExists()
	if err != nil || exists {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("conepilot"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("seed admin user: %v", err)
		return
	}
	if _, err := db.CreateAdminUser("admin", string(hash)); err != nil {
		log.Printf("seed admin user: %v", err)
		return
	}
	log.Printf("created default admin user (admin/conepilot), change the password")
}
