// Package speedrun polls speedrun.com for newly verified runs and announces
// them to chat.
package speedrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"

	"github.com/edgard/starboard/internal/resilience"
)

// ErrUnavailable marks a failure of the leaderboard service worth retrying.
var ErrUnavailable = errors.New("speedrun service unavailable")

// Client reads runs from the speedrun.com REST API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	Breaker    *resilience.CircuitBreaker
	Retry      *resilience.RetryConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates an API client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{Name: "speedrun", Timeout: opts.Timeout})
	}
	retry := resilience.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.Retryable = func(err error) bool { return errors.Is(err, ErrUnavailable) }
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		retry:   retry,
		logger:  logger.With("component", "speedrun_client"),
	}
}

type runsResponse struct {
	Data []apiRun `json:"data"`
}

type apiRun struct {
	ID       string          `json:"id"`
	Weblink  string          `json:"weblink"`
	Game     string          `json:"game"`
	Category json.RawMessage `json:"category"`
	Players  json.RawMessage `json:"players"`
	Status   struct {
		Status     string `json:"status"`
		VerifyDate string `json:"verify-date"`
	} `json:"status"`
	Times struct {
		Primary  string  `json:"primary"`
		PrimaryT float64 `json:"primary_t"`
	} `json:"times"`
}

type embeddedCategory struct {
	Data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type embeddedPlayers struct {
	Data []struct {
		Rel   string `json:"rel"`
		Name  string `json:"name"`
		Names struct {
			International string `json:"international"`
		} `json:"names"`
	} `json:"data"`
}

// LatestRuns returns up to limit verified runs for gameID, most recently
// verified first.
func (c *Client) LatestRuns(ctx context.Context, gameID string, limit int) ([]Run, error) {
	q := url.Values{}
	q.Set("game", gameID)
	q.Set("status", "verified")
	q.Set("orderby", "verify-date")
	q.Set("direction", "desc")
	q.Set("embed", "players,category")
	q.Set("max", strconv.Itoa(limit))
	endpoint := c.baseURL + "/runs?" + q.Encode()

	var body []byte
	err := resilience.WithRetry(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			body, err = c.get(ctx, endpoint)
			return err
		})
	}, c.retry)
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	var resp runsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode runs for game %s: %w", gameID, err)
	}

	runs := make([]Run, 0, len(resp.Data))
	for _, r := range resp.Data {
		run, err := r.toRun()
		if err != nil {
			c.logger.Warn("Skipping malformed run", "run_id", r.ID, "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "starboard-bot")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
}

func (r apiRun) toRun() (Run, error) {
	run := Run{
		ID:      r.ID,
		GameID:  r.Game,
		Weblink: r.Weblink,
	}
	if run.ID == "" {
		return Run{}, errors.New("run has no id")
	}

	if r.Times.PrimaryT > 0 {
		run.PrimaryTime = time.Duration(math.Round(r.Times.PrimaryT * float64(time.Second)))
	} else if r.Times.Primary != "" {
		d, err := ParseISODuration(r.Times.Primary)
		if err != nil {
			return Run{}, err
		}
		run.PrimaryTime = d
	}

	if r.Status.VerifyDate != "" {
		t, err := time.Parse(time.RFC3339, r.Status.VerifyDate)
		if err != nil {
			return Run{}, fmt.Errorf("invalid verify date: %w", err)
		}
		run.VerifiedAt = t
	}

	run.Category = decodeCategory(r.Category)
	run.Players = decodePlayers(r.Players)
	return run, nil
}

// decodeCategory accepts either an embedded category or a bare id.
func decodeCategory(raw json.RawMessage) string {
	var embedded embeddedCategory
	if err := json.Unmarshal(raw, &embedded); err == nil && embedded.Data.Name != "" {
		return embedded.Data.Name
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	return "unknown category"
}

func decodePlayers(raw json.RawMessage) []string {
	var embedded embeddedPlayers
	if err := json.Unmarshal(raw, &embedded); err != nil {
		return nil
	}
	names := make([]string, 0, len(embedded.Data))
	for _, p := range embedded.Data {
		switch {
		case p.Names.International != "":
			names = append(names, p.Names.International)
		case p.Name != "":
			names = append(names, p.Name)
		}
	}
	return names
}
