package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/codebuildervaibhav/voice-clipboard/internal/capture/mic"
	"github.com/codebuildervaibhav/voice-clipboard/internal/cleanup"
	"github.com/codebuildervaibhav/voice-clipboard/internal/clipboard"
	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/desktop"
	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/hotkey"
	"github.com/codebuildervaibhav/voice-clipboard/internal/notify"
	"github.com/codebuildervaibhav/voice-clipboard/internal/queue"
	"github.com/codebuildervaibhav/voice-clipboard/internal/storage"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
	"github.com/codebuildervaibhav/voice-clipboard/internal/workflow"
)

// run wires the desktop shell and blocks until ctx is done
func run(ctx context.Context, cfg *config.DesktopConfig) error {
	if err := cleanup.EnsureTempDirExists(cfg.Capture.TempDir); err != nil {
		return err
	}

	remote := remoteClient(cfg)

	// Saves are best-effort, so a store that cannot connect only disables history
	store, err := openStore(ctx, cfg, remote)
	if err != nil {
		log.Printf("WARNING: history store unavailable, transcriptions will not be saved: %v", err)
	} else {
		log.Printf("History store ready (%s)", cfg.Store.Kind)
	}

	archivePool := queue.NewArchivePool(cfg.Archive)
	if archivePool != nil {
		archivePool.Start()
		store = storage.NewArchivingStore(store, archivePool)
	}
	svc := history.NewService(store)

	encoder := transcription.NewEncoder(cfg.Capture.FFmpegPath, cfg.Capture.TempDir)
	recorder := mic.New(cfg.Capture.SampleRate, cfg.Capture.Channels, cfg.Capture.TempDir, encoder)

	wf := workflow.New(recorder, newTranscriber(cfg, remote), svc, clipboard.Default(), workflow.Options{
		ErrorDisplay:   time.Duration(cfg.Workflow.ErrorDisplaySeconds) * time.Second,
		SuccessDisplay: time.Duration(cfg.Workflow.SuccessDisplaySeconds) * time.Second,
		Notifier:       notify.NewFeedback(cfg.Notify.Beep, cfg.Notify.Desktop),
	})
	unsubscribe := wf.Subscribe(logStatus)
	defer unsubscribe()

	// Every trigger source feeds the one bridge listener
	bridge := hotkey.NewBridge()
	if err := bridge.Register(func() { go wf.Toggle(ctx) }); err != nil {
		return err
	}
	defer bridge.Unregister()

	if r := cfg.Hotkey.Redis; r.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
		defer client.Close()
		go func() {
			if err := hotkey.NewRedisSource(client, r.Channel, bridge).Run(ctx); err != nil {
				log.Printf("WARNING: redis toggle source stopped: %v", err)
			}
		}()
	}

	if isTerminal(os.Stdin) {
		go readEnter(ctx, bridge)
		log.Println("Press Enter to start/stop recording")
	}

	sweeper := cleanup.NewScheduler(cfg.Capture.TempDir, mic.TempPrefix, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours)
	sweeper.Start()
	defer sweeper.Stop()

	server := desktop.NewServer(cfg.Server.APIKey, wf, bridge, svc)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Listen(cfg.Server.Addr()) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Printf("Control server failed: %v", err)
		}
	}

	log.Println("Shutting down...")
	if err := server.Shutdown(); err != nil {
		log.Printf("Control server shutdown error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wf.Close(shutdownCtx)

	if archivePool != nil {
		archivePool.Stop()
	}
	if err := store.Disconnect(shutdownCtx); err != nil {
		log.Printf("History store disconnect error: %v", err)
	}
	return nil
}

func logStatus(st types.Status) {
	switch {
	case st.Error != "":
		log.Printf("State: %s (%s)", st.DisplayState(), st.Error)
	case st.DisplayState() == types.StateSuccess && st.Result != nil:
		log.Printf("State: %s (%.1fs, $%.6f)", st.DisplayState(), st.Result.DurationSeconds, st.CostUSD)
	default:
		log.Printf("State: %s", st.DisplayState())
	}
}

// readEnter fires the bridge on every line read from stdin
func readEnter(ctx context.Context, bridge *hotkey.Bridge) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		bridge.Fire()
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
