package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/edgard/starboard/internal/bot/tasks"
	"github.com/edgard/starboard/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsEnabledTasks(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick":    {Enabled: true, Schedule: "* * * * * *"},
		"off":     {Enabled: false, Schedule: "* * * * * *"},
		"unknown": {Enabled: true, Schedule: "* * * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
		"off": func(context.Context) error {
			t.Error("disabled task ran")
			return nil
		},
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = s.Stop() }()

	if got := s.Scheduled(); len(got) != 1 || got[0] != "tick" {
		t.Fatalf("Scheduled() = %v, want [tick]", got)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() error = nil")
	}

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run within 3s")
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"broken": {Enabled: true, Schedule: "every so often"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"broken": func(context.Context) error { return nil },
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("Start() error = nil, want invalid schedule error")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on unstarted scheduler error = %v", err)
	}
}

func TestBotRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	b := NewBot(discardLogger(), s, Component{
		Name: "gateway",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	<-started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestBotRunReturnsComponentError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("gateway closed")
	b := NewBot(discardLogger(), nil,
		Component{Name: "gateway", Run: func(context.Context) error { return errBoom }},
		Component{Name: "metrics", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}},
	)

	if err := b.Run(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("Run() error = %v, want errBoom", err)
	}
}

func TestBotRunComponentExitingEarly(t *testing.T) {
	t.Parallel()

	b := NewBot(discardLogger(), nil, Component{Name: "gateway", Run: func(context.Context) error { return nil }})
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want unexpected stop error")
	}
}
