// AvatarCast - an animated, lip-synced face for a remote AI voice agent
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/normanking/avatarcast/cmd"
	"github.com/normanking/avatarcast/internal/config"
	"github.com/normanking/avatarcast/internal/logging"
	"github.com/normanking/avatarcast/internal/mic"
	"github.com/normanking/avatarcast/internal/monitor"
	"github.com/normanking/avatarcast/internal/session"
	"github.com/normanking/avatarcast/internal/tokensrv"
)

// Global logger instance
var syslog *logging.Logger

// loadEnvFiles loads credentials from .env files into the process
// environment. Existing variables win.
func loadEnvFiles(extra string) {
	var paths []string
	if extra != "" {
		paths = append(paths, extra)
	}
	paths = append(paths, ".env")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".avatarcast", ".env"))
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			syslog.Info("env", "Loaded environment variables", map[string]interface{}{
				"source": p,
			})
		}
	}
}

func main() {
	opts, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	syslog, err = logging.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syslog.Close()

	loadEnvFiles(opts.EnvFile)

	cfg, err := config.Load()
	if err != nil {
		syslog.Warn("config", "Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	syslog.Reconfigure(logging.LogLevel(cfg.Log.Level), cfg.Log.Console)
	applyEnvOverrides(cfg)
	if opts.Monitor {
		cfg.Monitor.Enabled = true
	}

	switch opts.Command {
	case cmd.CommandDevices:
		err = runDevices()
	case cmd.CommandServeTokens:
		err = runTokenService(cfg)
	default:
		err = runAgent(cfg, opts.Room)
	}
	if err != nil {
		syslog.Error("main", "Fatal error", err, nil)
		os.Exit(1)
	}
}

// applyEnvOverrides maps the usual LiveKit environment variables onto the
// token service config so a bare .env is enough to serve tokens.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LIVEKIT_API_KEY"); v != "" {
		cfg.Token.APIKey = v
	}
	if v := os.Getenv("LIVEKIT_API_SECRET"); v != "" {
		cfg.Token.APISecret = v
	}
	if v := os.Getenv("LIVEKIT_URL"); v != "" {
		cfg.Token.ServerURL = v
	}
}

func runDevices() error {
	if err := mic.Initialize(); err != nil {
		return err
	}
	defer mic.Terminate()

	names, err := mic.ListInputDevices()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No input devices found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runTokenService(cfg *config.Config) error {
	srv := tokensrv.NewServer(&cfg.Token, &cfg.Identity, syslog.Component("tokensrv"))
	return srv.Run()
}

func runAgent(cfg *config.Config, roomHint string) error {
	syslog.Info("main", "AvatarCast starting...", map[string]interface{}{
		"tokenEndpoint": cfg.Token.Endpoint,
		"frameSize":     fmt.Sprintf("%dx%d@%d", cfg.Render.Width, cfg.Render.Height, cfg.Render.FPS),
		"logFile":       syslog.LogPath(),
	})

	if err := mic.Initialize(); err != nil {
		return err
	}
	defer mic.Terminate()

	var feed *monitor.Server
	if cfg.Monitor.Enabled {
		feed = monitor.NewServer(cfg.Monitor.ListenAddr, syslog.Component("monitor"))
		feed.Start()
		defer feed.Close()

		// stream log records over the same feed as the snapshots
		syslog.SetOnLog(func(e logging.Entry) {
			feed.Publish(e)
		})
		defer syslog.SetOnLog(nil)
	}

	tokens := session.NewHTTPTokenClient(cfg.Token.Endpoint, cfg.Token.Timeout)
	orch, err := session.NewOrchestrator(cfg, syslog.Component("session"), tokens,
		func(state session.State, status string) {
			syslog.Info("session", "State changed", map[string]interface{}{
				"state":  state.String(),
				"status": status,
			})
		})
	if err != nil {
		return err
	}

	// hot-reload animation tuning while live
	config.Watch(func(next *config.Config) {
		orch.ApplyTuning(next.Anim)
	})

	if feed != nil {
		snapCtx, stopSnapshots := context.WithCancel(context.Background())
		defer stopSnapshots()
		go publishSnapshots(snapCtx, feed, orch)
	}

	if err := orch.Connect(context.Background(), roomHint); err != nil {
		syslog.Error("session", "Connect failed", err, nil)
		fmt.Println("Connect failed; press 'r' to retry or 'q' to quit.")
	}

	waitForCommands(orch, roomHint)

	orch.Disconnect()
	syslog.Info("main", "Application exited normally", nil)
	return nil
}

func publishSnapshots(ctx context.Context, feed *monitor.Server, orch *session.Orchestrator) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			feed.Publish(orch.Snapshot())
		}
	}
}

// waitForCommands blocks until shutdown. 'r' retries a failed connect; a
// retry is never automatic.
func waitForCommands(orch *session.Orchestrator, roomHint string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			return
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep serving until signaled
				<-sigCh
				return
			}
			switch line {
			case "q", "quit":
				return
			case "r", "retry":
				if err := orch.Connect(context.Background(), roomHint); err != nil {
					syslog.Error("session", "Retry failed", err, nil)
				}
			case "s", "status":
				snap := orch.Snapshot()
				fmt.Printf("state=%s status=%q level=%.3f speaking=%v\n",
					snap.State, snap.Status, snap.Level, snap.Speaking)
			case "l", "logs":
				for _, e := range syslog.History(15) {
					fmt.Printf("%s %-5s [%s] %s\n", e.Timestamp, e.Level, e.Component, e.Message)
				}
			}
		}
	}
}
