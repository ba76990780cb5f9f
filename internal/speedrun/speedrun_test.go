package speedrun

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/starboard/internal/database"
	"github.com/edgard/starboard/internal/resilience"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: "0:00"},
		{in: 3*time.Minute + 4*time.Second + 50*time.Millisecond, want: "3:04.050"},
		{in: time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond, want: "1:02:03.456"},
		{in: 25 * time.Hour, want: "25:00:00"},
		{in: -time.Second, want: "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT1H2M3.456S", want: time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond},
		{in: "PT45S", want: 45 * time.Second},
		{in: "PT12M", want: 12 * time.Minute},
		{in: "P1DT2H", want: 26 * time.Hour},
		{in: "pt1m", want: time.Minute},
		{in: "", wantErr: true},
		{in: "P", wantErr: true},
		{in: "1H", wantErr: true},
		{in: "PT1X", wantErr: true},
		{in: "PT12", wantErr: true},
		{in: "P1H", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseISODuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseISODuration(%q) error = nil, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseISODuration(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatAnnouncement(t *testing.T) {
	t.Parallel()

	got := FormatAnnouncement(Run{
		Category:    "Any%",
		Players:     []string{"alice", "bob"},
		PrimaryTime: 90 * time.Second,
		Weblink:     "https://www.speedrun.com/run/abc",
	})
	want := "🏁 New verified run: **Any%** in 1:30 by alice, bob\nhttps://www.speedrun.com/run/abc"
	if got != want {
		t.Errorf("FormatAnnouncement() = %q, want %q", got, want)
	}

	if got := FormatAnnouncement(Run{Category: "Any%"}); !strings.Contains(got, "unknown runner") {
		t.Errorf("FormatAnnouncement() without players = %q", got)
	}
}

const runsFixture = `{
  "data": [
    {
      "id": "run2",
      "weblink": "https://www.speedrun.com/run/run2",
      "game": "o1y9wo6q",
      "category": {"data": {"id": "cat1", "name": "120 Star"}},
      "players": {"data": [{"rel": "user", "names": {"international": "cheese"}}, {"rel": "guest", "name": "guesty"}]},
      "status": {"status": "verified", "verify-date": "2024-05-02T10:00:00Z"},
      "times": {"primary": "PT1H36M30S", "primary_t": 5790}
    },
    {
      "id": "run1",
      "weblink": "https://www.speedrun.com/run/run1",
      "game": "o1y9wo6q",
      "category": "cat2",
      "players": [{"rel": "user", "id": "u1"}],
      "status": {"status": "verified", "verify-date": "2024-05-01T10:00:00Z"},
      "times": {"primary": "PT6M31.2S"}
    },
    {
      "id": "",
      "game": "o1y9wo6q"
    }
  ]
}`

func TestClientLatestRuns(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("game") != "o1y9wo6q" || q.Get("status") != "verified" || q.Get("orderby") != "verify-date" || q.Get("max") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(runsFixture))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL + "/", Timeout: time.Second})
	runs, err := client.LatestRuns(context.Background(), "o1y9wo6q", 5)
	if err != nil {
		t.Fatalf("LatestRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("LatestRuns() len = %d, want 2", len(runs))
	}

	first := runs[0]
	if first.ID != "run2" || first.Category != "120 Star" || first.PrimaryTime != 5790*time.Second {
		t.Errorf("runs[0] = %+v, unexpected", first)
	}
	if len(first.Players) != 2 || first.Players[0] != "cheese" || first.Players[1] != "guesty" {
		t.Errorf("runs[0].Players = %v", first.Players)
	}
	if !first.VerifiedAt.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("runs[0].VerifiedAt = %v", first.VerifiedAt)
	}

	second := runs[1]
	if second.Category != "cat2" || second.PrimaryTime != 6*time.Minute+31200*time.Millisecond || len(second.Players) != 0 {
		t.Errorf("runs[1] = %+v, unexpected", second)
	}
}

func TestClientRetriesUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	retry := resilience.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, Multiplier: 1}
	client := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second, Retry: &retry})
	runs, err := client.LatestRuns(context.Background(), "g", 1)
	if err != nil {
		t.Fatalf("LatestRuns() error = %v", err)
	}
	if len(runs) != 0 || calls.Load() != 2 {
		t.Errorf("runs = %d, calls = %d, want 0 and 2", len(runs), calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	retry := resilience.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, Multiplier: 1}
	client := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second, Retry: &retry})
	_, err := client.LatestRuns(context.Background(), "missing", 1)
	if err == nil {
		t.Fatal("LatestRuns() error = nil, want error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("LatestRuns() error = %v, 404 must not be ErrUnavailable", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientOpenCircuitIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{Name: "test", MaxFailures: 1, ResetAfter: time.Hour})
	retry := resilience.RetryConfig{MaxAttempts: 1}
	client := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second, Breaker: breaker, Retry: &retry})

	if _, err := client.LatestRuns(context.Background(), "g", 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("first LatestRuns() error = %v, want ErrUnavailable", err)
	}
	_, err := client.LatestRuns(context.Background(), "g", 1)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("second LatestRuns() error = %v, want open circuit", err)
	}
}

type fakeSource struct {
	runs []Run
	err  error
}

func (f *fakeSource) LatestRuns(context.Context, string, int) ([]Run, error) {
	return f.runs, f.err
}

type recordingAnnouncer struct {
	texts  []string
	failAt int
}

func (a *recordingAnnouncer) Name() string { return "recording" }

func (a *recordingAnnouncer) Announce(_ context.Context, text string) error {
	if a.failAt > 0 && len(a.texts)+1 == a.failAt {
		a.failAt = 0
		return errors.New("sink down")
	}
	a.texts = append(a.texts, text)
	return nil
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "starboard.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func run(id, category string) Run {
	return Run{ID: id, GameID: "api-id", Category: category, PrimaryTime: time.Minute}
}

func TestPollerBaselineThenAnnounces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	source := &fakeSource{runs: []Run{run("r2", "B"), run("r1", "A")}}
	sink := &recordingAnnouncer{}
	poller := NewPoller(source, store, []Announcer{sink}, PollerOptions{})

	n, err := poller.Poll(ctx, "sm64")
	if err != nil {
		t.Fatalf("first Poll() error = %v", err)
	}
	if n != 0 || len(sink.texts) != 0 {
		t.Fatalf("first Poll() announced %d (%d texts), want baseline only", n, len(sink.texts))
	}
	if count, _ := store.CountAnnouncedRuns(ctx, "sm64"); count != 2 {
		t.Fatalf("baseline recorded %d runs, want 2", count)
	}

	source.runs = []Run{run("r4", "D"), run("r3", "C"), run("r2", "B"), run("r1", "A")}
	n, err = poller.Poll(ctx, "sm64")
	if err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("second Poll() announced %d, want 2", n)
	}
	if !strings.Contains(sink.texts[0], "**C**") || !strings.Contains(sink.texts[1], "**D**") {
		t.Errorf("announcements out of order: %v", sink.texts)
	}

	n, err = poller.Poll(ctx, "sm64")
	if err != nil || n != 0 {
		t.Errorf("third Poll() = %d, %v, want 0, nil", n, err)
	}
}

func TestPollerStopsOnAnnounceFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.MarkRunAnnounced(ctx, &database.AnnouncedRun{RunID: "r0", GameID: "g"}); err != nil {
		t.Fatalf("MarkRunAnnounced() error = %v", err)
	}

	source := &fakeSource{runs: []Run{run("r3", "C"), run("r2", "B"), run("r1", "A")}}
	sink := &recordingAnnouncer{failAt: 2}
	poller := NewPoller(source, store, []Announcer{sink}, PollerOptions{})

	n, err := poller.Poll(ctx, "g")
	if err == nil {
		t.Fatal("Poll() error = nil, want announce failure")
	}
	if n != 1 {
		t.Errorf("Poll() announced %d before failure, want 1", n)
	}
	if seen, _ := store.IsRunAnnounced(ctx, "r2"); seen {
		t.Error("run r2 marked announced despite failure")
	}

	n, err = poller.Poll(ctx, "g")
	if err != nil {
		t.Fatalf("retry Poll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("retry Poll() announced %d, want 2", n)
	}
	if len(sink.texts) != 3 {
		t.Errorf("texts = %d, want 3 (no duplicate of r1)", len(sink.texts))
	}
}

func TestPollerFetchError(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	poller := NewPoller(&fakeSource{err: ErrUnavailable}, store, nil, PollerOptions{})

	if _, err := poller.Poll(context.Background(), "g"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Poll() error = %v, want ErrUnavailable", err)
	}
}
