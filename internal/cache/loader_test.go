package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/repository/memory"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoaderGetOrSetCachesFetchResult(t *testing.T) {
	loader := NewLoader(memory.NewCacheStore(), nil)

	fetches := 0
	fetch := func(context.Context) (any, error) {
		fetches++
		return &payload{Name: "first", Count: fetches}, nil
	}

	var got payload
	if err := loader.GetOrSet(context.Background(), "k", time.Minute, &got, fetch); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if got.Name != "first" || fetches != 1 {
		t.Fatalf("unexpected first result: %+v fetches=%d", got, fetches)
	}

	var again payload
	if err := loader.GetOrSet(context.Background(), "k", time.Minute, &again, fetch); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if fetches != 1 {
		t.Fatalf("fetch called on cache hit: %d", fetches)
	}
	if again.Count != 1 {
		t.Fatalf("served stale payload shape: %+v", again)
	}
}

func TestLoaderInvalidateForcesRefetch(t *testing.T) {
	loader := NewLoader(memory.NewCacheStore(), nil)

	fetches := 0
	fetch := func(context.Context) (any, error) {
		fetches++
		return &payload{Count: fetches}, nil
	}

	var got payload
	if err := loader.GetOrSet(context.Background(), "k", time.Minute, &got, fetch); err != nil {
		t.Fatalf("warm: %v", err)
	}

	loader.Invalidate(context.Background(), "k")

	if err := loader.GetOrSet(context.Background(), "k", time.Minute, &got, fetch); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if fetches != 2 || got.Count != 2 {
		t.Fatalf("invalidation did not force refetch: fetches=%d payload=%+v", fetches, got)
	}
}

func TestLoaderFetchErrorPropagates(t *testing.T) {
	loader := NewLoader(memory.NewCacheStore(), nil)

	wantErr := errors.New("backend down")
	var got payload
	err := loader.GetOrSet(context.Background(), "k", time.Minute, &got, func(context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestProfileKey(t *testing.T) {
	if got := ProfileKey("abc"); got != "profile:abc" {
		t.Fatalf("ProfileKey = %q", got)
	}
}
