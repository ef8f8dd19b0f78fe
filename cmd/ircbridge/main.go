package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/relaynet/ircbridge/internal/bridge"
	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/irc"
	"github.com/relaynet/ircbridge/internal/journal"
	"github.com/relaynet/ircbridge/internal/logger"
	"github.com/relaynet/ircbridge/internal/web"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Command line flags
	foreground := flag.Bool("x", false, "Run in foreground (don't daemonize)")
	configPath := flag.String("c", "./config.yaml", "Path to configuration file")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	showVersionLong := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	// Show version and exit
	if *showVersion || *showVersionLong {
		fmt.Printf("ircbridge version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	irc.Version = version

	// Daemonize unless -x flag is set
	if !*foreground {
		daemonize()
		return
	}

	// Write PID file
	if err := writePIDFile(); err != nil {
		log.Printf("Warning: could not write PID file: %v", err)
	}

	run(*configPath)
}

// daemonize performs double-fork to become a daemon
func daemonize() {
	// Check if we're already a daemon child
	if os.Getenv("IRCBRIDGE_DAEMON") == "1" {
		// Write PID file
		if err := writePIDFile(); err != nil {
			log.Printf("Warning: could not write PID file: %v", err)
		}

		fmt.Printf("Now becoming a daemon\nMy pid is %d, this has been written to pid.txt\n", os.Getpid())

		// Re-exec ourselves with -x to run the actual bridge
		args := append(os.Args, "-x")

		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Stdin = nil
		cmd.Env = os.Environ()

		if err := cmd.Start(); err != nil {
			log.Fatalf("Failed to start daemon: %v", err)
		}
		os.Exit(0)
	}

	// First fork
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), "IRCBRIDGE_DAEMON=1")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to fork: %v", err)
	}

	// Parent exits
	os.Exit(0)
}

func writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile("pid.txt", []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

func run(configPath string) {
	// Make config path absolute
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	manager, err := config.NewManager(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := manager.Get()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	appLog := logger.New(cfg.DataDir)
	appLog.SetLevel(cfg.LogLevel)

	jrnl, err := journal.Open(cfg.DataDir)
	if err != nil {
		appLog.Error("open event journal", err)
	}

	b := bridge.New(appLog, manager, jrnl)

	// SIGHUP reloads the configuration; running connections keep
	// their settings until restarted.
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	go func() {
		for range hupChan {
			if err := manager.Reload(); err != nil {
				appLog.Error("config reload failed, keeping previous config", err)
				continue
			}
			appLog.Info("configuration reloaded")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ids := cfg.AccountIDs()
	if len(ids) == 0 {
		appLog.Fatal("no enabled irc accounts configured", nil)
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := b.StartAccount(ctx, id); err != nil {
				appLog.Error("start account", err, "account", id)
			}
		}(id)
	}
	wg.Wait()

	if cfg.HTTPAddr != "" {
		router := web.NewRouter(appLog, b, cfg.HTTPAddr)
		go func() {
			appLog.Info("http server listening", "addr", cfg.HTTPAddr)
			if err := router.Run(); err != nil && err != http.ErrServerClosed {
				appLog.Error("http server", err)
			}
		}()
		defer router.Shutdown()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	appLog.Info("shutting down", "signal", sig.String())

	b.StopAll()
}
