package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
)

type testItem struct {
	id   string
	fail bool
}

func (i testItem) ID() string { return i.id }

func TestProcessPoolRunsAllItems(t *testing.T) {
	items := make([]testItem, 8)
	for i := range items {
		items[i] = testItem{id: fmt.Sprintf("item-%d", i)}
	}

	var ran atomic.Int32
	results, err := processPool(context.Background(), 3, items, slog.Default(), func(ctx context.Context, item testItem) (string, error) {
		ran.Add(1)
		return item.id, nil
	})
	if err != nil {
		t.Fatalf("processPool() error: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	if ran.Load() != int32(len(items)) {
		t.Errorf("ran %d items, want %d", ran.Load(), len(items))
	}
}

func TestProcessPoolFirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")
	items := []testItem{{id: "a"}, {id: "b", fail: true}, {id: "c"}}

	_, err := processPool(context.Background(), 1, items, slog.Default(), func(ctx context.Context, item testItem) (string, error) {
		if item.fail {
			return "", boom
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return item.id, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
}

func TestProcessPoolEmptyInput(t *testing.T) {
	results, err := processPool(context.Background(), 4, nil, slog.Default(), func(ctx context.Context, item testItem) (string, error) {
		return "", nil
	})
	if err != nil {
		t.Fatalf("processPool() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
