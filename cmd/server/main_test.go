package main

import (
	"errors"
	"testing"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

func TestConnectDatabaseUnreachable(t *testing.T) {
	cfg := config.MongoSection{
		URI:        "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200",
		Database:   "voice_clipboard",
		Collection: "transcriptions",
	}

	store, err := connectDatabase(cfg, 2*time.Second)
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
	if store != nil {
		t.Error("no store should be returned on failure")
	}
	var pe *types.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "connect" {
		t.Errorf("err = %v, want connect PersistenceError", err)
	}
}
