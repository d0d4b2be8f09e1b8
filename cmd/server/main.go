package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/handlers"
	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/queue"
	"github.com/codebuildervaibhav/voice-clipboard/internal/storage"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "path to the YAML config file")
	flag.Parse()

	// Keep the last 1000 log lines for /api/logs
	logBuffer := handlers.NewLogBuffer(1000)
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.APIKey == "" {
		log.Println("WARNING: API_KEY is not set; every protected route will answer 500")
	}
	if cfg.Groq.APIKey == "" {
		log.Println("WARNING: GROQ_API_KEY is not set; transcription requests will fail")
	}

	log.Println("Initializing components...")

	// Database
	mongoStore, err := connectDatabase(cfg.Mongo, 15*time.Second)
	if err != nil {
		log.Fatalf("MongoDB connection failed: %v", err)
	}
	log.Printf("Connected to MongoDB (%s/%s)", cfg.Mongo.Database, cfg.Mongo.Collection)

	// Archivers run on the worker pool, off the request path
	archivePool := queue.NewArchivePool(cfg.Archive)
	var store history.Store = mongoStore
	if archivePool != nil {
		archivePool.Start()
		store = storage.NewArchivingStore(mongoStore, archivePool)
	}

	groq := transcription.NewGroqClient(cfg.Groq, nil)

	app := handlers.NewApp(handlers.Deps{
		APIKey:      cfg.Server.APIKey,
		BodyLimitMB: cfg.Server.BodyLimitMB,
		Transcriber: groq,
		History:     history.NewService(store),
		Logs:        logBuffer,
		AccessLog:   true,
	})

	addr := cfg.Server.Addr()
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   GET  /api/health        - Health check")
	log.Println("   POST /api/transcribe    - Transcribe an audio upload (?save=false to skip history)")
	log.Println("   GET  /api/history/days  - Days with transcription counts")
	log.Println("   GET  /api/history/:date - Transcriptions of one day")
	log.Println("   POST /api/history       - Add a transcription")
	log.Println("   GET  /api/logs          - View server logs")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	if archivePool != nil {
		archivePool.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mongoStore.Disconnect(ctx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
	log.Println("Server stopped")
}

// connectDatabase connects the history store, giving up after timeout
func connectDatabase(cfg config.MongoSection, timeout time.Duration) (*storage.MongoStore, error) {
	store := storage.NewMongoStore(cfg.URI, cfg.Database, cfg.Collection)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
