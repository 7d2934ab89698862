package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_Growth(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	want := []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	for i, w := range want {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if b.Current() != w {
			t.Errorf("step %d: Current() = %v, want %v", i, b.Current(), w)
		}
	}

	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("after Reset Current() = %v", b.Current())
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := newBackoff(time.Second, time.Minute)
	for i := 0; i < 1000; i++ {
		d := b.next()
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("next() = %v, outside ±20%%", d)
		}
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newBackoff(time.Hour, time.Hour)
	start := time.Now()
	err := b.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly")
	}
	if b.Current() != time.Hour {
		t.Error("canceled wait must not grow the backoff")
	}
}

func TestPacer_Pick(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
	}{
		{"range", time.Second, 3 * time.Second},
		{"fixed", time.Second, time.Second},
		{"zero", 0, 0},
		{"inverted", 2 * time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPacer(tt.min, tt.max)
			for i := 0; i < 200; i++ {
				d := p.Pick()
				if d < p.min || d > p.max {
					t.Fatalf("Pick() = %v, outside [%v, %v]", d, p.min, p.max)
				}
			}
		})
	}
}
