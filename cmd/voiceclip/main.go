package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/codebuildervaibhav/voice-clipboard/internal/apiclient"
	"github.com/codebuildervaibhav/voice-clipboard/internal/clipboard"
	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/desktop"
	"github.com/codebuildervaibhav/voice-clipboard/internal/handlers"
	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/hotkey"
	"github.com/codebuildervaibhav/voice-clipboard/internal/storage"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
	"github.com/codebuildervaibhav/voice-clipboard/internal/tui"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

const usage = `Usage: voiceclip [command] [-config path]

Commands:
  run      Start the recorder and the local control server (default)
  toggle   Start or stop recording in a running instance
  watch    Print status changes of a running instance
  history  Browse saved transcriptions
`

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage); fs.PrintDefaults() }
	configPath := fs.String("config", "config/desktop.yaml", "path to the YAML config file")
	fs.Parse(args)

	cfg, err := config.LoadDesktop(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		err = run(ctx, cfg)
	case "toggle":
		err = toggle(ctx, cfg)
	case "watch":
		err = watch(ctx, cfg)
	case "history":
		err = browse(ctx, cfg)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// openStore builds and connects the configured history store. The remote
// client is shared with the transcriber when both point at the backend.
func openStore(ctx context.Context, cfg *config.DesktopConfig, remote *apiclient.Client) (history.Store, error) {
	var store history.Store
	switch cfg.Store.Kind {
	case config.StoreMongo:
		store = storage.NewMongoStore(cfg.Store.Mongo.URI, cfg.Store.Mongo.Database, cfg.Store.Mongo.Collection)
	case config.StoreRemote:
		store = remote
	default:
		store = storage.NewSQLiteStore(cfg.Store.SQLitePath)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := store.Connect(connectCtx); err != nil {
		return store, err
	}
	return store, nil
}

func remoteClient(cfg *config.DesktopConfig) *apiclient.Client {
	if cfg.Store.Kind != config.StoreRemote && cfg.Transcriber.Kind != config.TranscriberRemote {
		return nil
	}
	return apiclient.New(cfg.Store.Remote.BaseURL, cfg.Store.Remote.APIKey, nil)
}

func newTranscriber(cfg *config.DesktopConfig, remote *apiclient.Client) transcription.Transcriber {
	if cfg.Transcriber.Kind == config.TranscriberRemote {
		return remote
	}
	return transcription.NewGroqClient(cfg.Groq, nil)
}

// controlURL is the http base URL of the local control server. Wildcard
// listen addresses are reached over loopback.
func controlURL(cfg *config.DesktopConfig) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
}

// toggle publishes on redis when configured, else calls the control server
func toggle(ctx context.Context, cfg *config.DesktopConfig) error {
	if r := cfg.Hotkey.Redis; r.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
		defer client.Close()

		n, err := hotkey.Publish(ctx, client, r.Channel)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no voiceclip instance is subscribed to %s", r.Channel)
		}
		fmt.Println("Toggled")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL(cfg)+"/api/toggle", nil)
	if err != nil {
		return err
	}
	if cfg.Server.APIKey != "" {
		req.Header.Set(handlers.APIKeyHeader, cfg.Server.APIKey)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("control server unreachable: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("toggle failed (%d): %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("toggle failed (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	fmt.Println("Toggled")
	return nil
}

// watch prints every status change until interrupted
func watch(ctx context.Context, cfg *config.DesktopConfig) error {
	wsURL, err := desktop.StatusURL(controlURL(cfg))
	if err != nil {
		return err
	}
	return desktop.Watch(ctx, wsURL, cfg.Server.APIKey, func(p desktop.StatusPayload) {
		line := fmt.Sprintf("%s  %-12s", time.Now().Format("15:04:05"), p.Display)
		switch {
		case p.Error != "":
			line += "  " + p.Error
		case p.Result != nil && p.Display == types.StateSuccess:
			line += fmt.Sprintf("  %.1fs $%.6f  %s", p.Result.DurationSeconds, p.CostUSD, p.Result.Text)
		}
		fmt.Println(line)
	})
}

// browse opens the terminal history browser
func browse(ctx context.Context, cfg *config.DesktopConfig) error {
	store, err := openStore(ctx, cfg, remoteClient(cfg))
	if err != nil {
		return err
	}
	defer store.Disconnect(context.Background())
	cb := clipboard.Default()

	// Keep log output off the alternate screen
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	return tui.Run(ctx, history.NewService(store), cb)
}
