package hotkey

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

func TestBridgeRegister(t *testing.T) {
	b := NewBridge()

	if b.Fire() {
		t.Fatal("Fire without listener should report false")
	}

	var count int32
	if err := b.Register(func() { atomic.AddInt32(&count, 1) }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := b.Register(func() {}); !errors.Is(err, types.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	if !b.Fire() {
		t.Fatal("Fire should reach the listener")
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("listener called %d times, want 1", count)
	}

	b.Unregister()
	b.Unregister() // no-op
	if b.Fire() {
		t.Error("Fire after Unregister should report false")
	}
	if err := b.Register(func() {}); err != nil {
		t.Errorf("Register after Unregister: %v", err)
	}
}

func TestBridgeListenerMayUnregister(t *testing.T) {
	b := NewBridge()
	b.Register(func() { b.Unregister() })

	if !b.Fire() {
		t.Fatal("first Fire should be delivered")
	}
	if b.Fire() {
		t.Error("listener removed itself, second Fire should not be delivered")
	}
}

func TestRedisSourceStopsOnUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	src := NewRedisSource(client, "voiceclip:toggle", NewBridge())
	if err := src.Run(ctx); err == nil {
		t.Fatal("expected subscribe error for unreachable server")
	}
	if _, err := Publish(ctx, client, "voiceclip:toggle"); err == nil {
		t.Fatal("expected publish error for unreachable server")
	}
}

func TestRedisSourceFiresOnToggle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	const channel = "voiceclip:toggle"
	fired := make(chan struct{}, 4)
	bridge := NewBridge()
	bridge.Register(func() { fired <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- NewRedisSource(client, channel, bridge).Run(ctx) }()

	// Unknown payloads double as the subscription probe
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := client.Publish(ctx, channel, "noise").Result()
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("source never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < 2; i++ {
		n, err := Publish(ctx, client, channel)
		if err != nil || n != 1 {
			t.Fatalf("Publish = %d, %v", n, err)
		}
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("toggle %d never reached the bridge", i+1)
		}
		client.Publish(ctx, channel, "other")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if len(fired) != 0 {
		t.Errorf("non-toggle payloads fired the bridge %d times", len(fired))
	}
}
