// Command hexe-ses is the session router daemon: one process per hexe
// instance, owning the registry and splicing VT bytes between every MUX
// and the PODs it spawns.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warpwm/hexe/internal/config"
	"github.com/warpwm/hexe/internal/metrics"
	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/ses"
)

func main() {
	configPath := flag.String("config", "", "path to hexe.yaml (optional; defaults are used if empty)")
	podBinary := flag.String("pod-binary", "", "override the hexe-pod executable path")
	debugListen := flag.String("debug-listen", "", "loopback address for the optional debug websocket/metrics feed, e.g. 127.0.0.1:7171")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("hexe-ses: load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if *podBinary != "" {
		cfg.Paths.PodBinaryPath = *podBinary
	}
	if *debugListen != "" {
		cfg.Debug.Listen = *debugListen
	}

	logger := log.New(os.Stderr, "hexe-ses: ", log.LstdFlags)

	runtimeDir, err := sockutil.RuntimeDir("hexe", cfg.Instance.Name)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if err := os.MkdirAll(cfg.Paths.StateDir, 0700); err != nil {
		logger.Fatalf("create state dir %s: %v", cfg.Paths.StateDir, err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Paths.StateDir, "backlog"), 0700); err != nil {
		logger.Fatalf("create backlog spill dir: %v", err)
	}

	rcfg := ses.Config{
		RuntimeDir:    runtimeDir,
		StateDir:      cfg.Paths.StateDir,
		SocketPath:    sockutil.SesSocketPath(runtimeDir),
		PodBinaryPath: cfg.Paths.PodBinaryPath,
		DefaultShell:  cfg.Session.DefaultShell,
		TickInterval:  time.Duration(cfg.Session.TickIntervalMs) * time.Millisecond,
		BacklogBytes:  cfg.Pod.BacklogBytes,
		Logger:        logger,
	}

	if cfg.Debug.Listen != "" {
		rcfg.Metrics = metrics.NewCollector()
		rcfg.Hub = metrics.NewHub()
		srv := &metrics.Server{Collector: rcfg.Metrics, Hub: rcfg.Hub, Logger: logger}
		go func() {
			if err := metrics.ListenAndServe(cfg.Debug.Listen, srv); err != nil {
				logger.Printf("debug listener stopped: %v", err)
			}
		}()
		logger.Printf("debug listener on %s (/metrics, /ws)", cfg.Debug.Listen)
	}

	router, err := ses.New(rcfg)
	if err != nil {
		logger.Fatalf("start router: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Printf("shutting down")
		router.Close()
	}()

	fmt.Println("hexe-ses ready: " + rcfg.SocketPath)
	router.Run()
}
