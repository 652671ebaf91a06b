package cache

import (
	"context"
	"testing"
	"time"

	"change-approval/pkg/clock"
)

func TestMemoryKV_Expiry(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	kv := NewMemoryKV(clk)
	ctx := context.Background()

	_ = kv.Set(ctx, "k", []byte("v"), 300*time.Second)

	clk.Advance(299 * time.Second)
	if v, ok, _ := kv.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("before expiry Get = %q, %v", v, ok)
	}

	clk.Advance(time.Second)
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("entry visible at expiry instant")
	}

	_ = kv.Set(ctx, "forever", []byte("v"), 0)
	clk.Advance(24 * time.Hour)
	if _, ok, _ := kv.Get(ctx, "forever"); !ok {
		t.Fatal("ttl<=0 entry expired")
	}
}
