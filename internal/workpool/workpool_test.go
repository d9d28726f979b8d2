package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRun_AllIndices(t *testing.T) {
	out := make([]int, 100)
	err := Run(context.Background(), 4, len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("slot %d = %d, want %d", i, v, i*i)
		}
	}
}

func TestRun_FirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := Run(context.Background(), 1, 10, func(_ context.Context, i int) error {
		calls.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls.Load() == 0 {
		t.Error("fn never called")
	}
}

func TestRun_Empty(t *testing.T) {
	if err := Run(context.Background(), 2, 0, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		n, k int
		want []Range
	}{
		{10, 3, []Range{{0, 4}, {4, 7}, {7, 10}}},
		{2, 5, []Range{{0, 1}, {1, 2}}},
		{0, 3, nil},
		{5, 0, []Range{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}},
	}
	for _, tt := range tests {
		got := Chunks(tt.n, tt.k)
		if len(got) != len(tt.want) {
			t.Errorf("Chunks(%d,%d) = %v, want %v", tt.n, tt.k, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Chunks(%d,%d)[%d] = %v, want %v", tt.n, tt.k, i, got[i], tt.want[i])
			}
		}
	}
}
