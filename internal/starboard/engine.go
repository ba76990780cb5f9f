// Package starboard decides when a reacted message is mirrored to the
// starboard channel and keeps mirror records in step with reaction counts.
package starboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edgard/starboard/internal/database"
	"github.com/edgard/starboard/internal/telemetry"
)

// RecordStore is the part of the database store the engine needs.
type RecordStore interface {
	CreateStarRecord(ctx context.Context, record *database.StarRecord) error
	GetStarRecord(ctx context.Context, messageID int64) (*database.StarRecord, error)
	UpdateReactionCount(ctx context.Context, messageID int64, count int) error
	ListStarRecords(ctx context.Context) ([]database.StarRecord, error)
}

// Options configures an Engine.
type Options struct {
	// Threshold is the qualifying-reaction count that triggers the first mirror.
	Threshold int
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
}

// cleanupTimeout bounds retracting content after a failed create. Retraction
// runs detached from the cancellation of the observation context.
const cleanupTimeout = 5 * time.Second

type mirror struct {
	ref   ContentRef
	count int
}

// Engine turns reaction observations into starboard actions. The mirrored set
// it keeps in memory only short-circuits lookups; the store decides.
type Engine struct {
	store     RecordStore
	poster    Poster
	threshold int
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	locks *keyedMutex

	mu       sync.RWMutex
	mirrored map[int64]mirror
}

// NewEngine creates an engine over store and poster.
func NewEngine(store RecordStore, poster Poster, opts Options) (*Engine, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if poster == nil {
		return nil, errors.New("poster is required")
	}
	if opts.Threshold < 1 {
		return nil, fmt.Errorf("threshold must be at least 1, got %d", opts.Threshold)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		store:     store,
		poster:    poster,
		threshold: opts.Threshold,
		logger:    logger.With("component", "starboard"),
		metrics:   opts.Metrics,
		locks:     newKeyedMutex(),
		mirrored:  make(map[int64]mirror),
	}, nil
}

// Warm loads the mirrored set from the store. Call it once before observing.
func (e *Engine) Warm(ctx context.Context) error {
	n, err := e.Resync(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("Starboard state loaded", "records", n)
	return nil
}

// Resync replaces the mirrored set with the store's current contents and
// returns its size.
func (e *Engine) Resync(ctx context.Context) (int, error) {
	records, err := e.store.ListStarRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list star records: %w", err)
	}

	set := make(map[int64]mirror, len(records))
	for i := range records {
		set[records[i].MessageID] = mirrorFromRecord(&records[i])
	}

	e.mu.Lock()
	e.mirrored = set
	e.mu.Unlock()

	e.metrics.SetTracked(len(set))
	return len(set), nil
}

// Tracked returns how many messages the engine currently believes are mirrored.
func (e *Engine) Tracked() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.mirrored)
}

// Observe processes one observation and reports what it did. Observations for
// the same message are serialized. A failed post leaves no record behind and
// the error is returned so the caller can retry later.
func (e *Engine) Observe(ctx context.Context, obs Observation) (Action, error) {
	action, err := e.observe(ctx, obs)
	if err == nil {
		e.metrics.ObserveAction(action.String())
	}
	return action, err
}

func (e *Engine) observe(ctx context.Context, obs Observation) (Action, error) {
	log := e.logger.With("message_id", obs.MessageID, "count", obs.Count)

	if obs.IsSelfAuthored {
		log.Debug("Skipping self-authored message")
		return ActionNone, nil
	}
	unlock := e.locks.Lock(obs.MessageID)
	defer unlock()

	existing, ok, err := e.lookup(ctx, obs.MessageID)
	if err != nil {
		return ActionNone, err
	}
	if ok {
		updated, err := e.updateMirror(ctx, log, obs, existing)
		if err != nil {
			return ActionNone, err
		}
		if updated {
			return ActionUpdated, nil
		}
	}

	if obs.Count < e.threshold {
		return ActionNone, nil
	}
	if strings.TrimSpace(obs.Body) == "" && len(obs.AttachmentURLs) == 0 {
		log.Debug("Skipping message without content")
		return ActionNone, nil
	}

	return e.createMirror(ctx, log, obs)
}

// lookup consults the mirrored set, then the store.
func (e *Engine) lookup(ctx context.Context, messageID int64) (mirror, bool, error) {
	e.mu.RLock()
	m, ok := e.mirrored[messageID]
	e.mu.RUnlock()
	if ok {
		return m, true, nil
	}

	record, err := e.store.GetStarRecord(ctx, messageID)
	if err != nil {
		return mirror{}, false, fmt.Errorf("failed to look up star record: %w", err)
	}
	if record == nil {
		return mirror{}, false, nil
	}

	m = mirrorFromRecord(record)
	e.remember(messageID, m)
	return m, true, nil
}

// updateMirror records the new count for a mirrored message. It returns false
// when the record turned out to be gone, in which case the message is treated
// as unmirrored.
func (e *Engine) updateMirror(ctx context.Context, log *slog.Logger, obs Observation, existing mirror) (bool, error) {
	err := e.store.UpdateReactionCount(ctx, obs.MessageID, obs.Count)
	if errors.Is(err, database.ErrNotFound) {
		log.Info("Star record disappeared, treating message as unmirrored")
		e.forget(obs.MessageID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update reaction count: %w", err)
	}

	e.remember(obs.MessageID, mirror{ref: existing.ref, count: obs.Count})

	if obs.Count != existing.count {
		if refresher, ok := e.poster.(Refresher); ok {
			if err := refresher.RefreshContent(ctx, existing.ref, BuildContent(obs)); err != nil {
				log.Warn("Failed to refresh starboard content", "error", err)
			}
		}
	}

	log.Debug("Updated starboard count", "previous", existing.count)
	return true, nil
}

func (e *Engine) createMirror(ctx context.Context, log *slog.Logger, obs Observation) (Action, error) {
	ref, err := e.poster.PostContent(ctx, BuildContent(obs))
	if err != nil {
		e.metrics.MirrorFailed()
		return ActionNone, fmt.Errorf("failed to post starboard content for message %d: %w", obs.MessageID, err)
	}

	record := &database.StarRecord{
		MessageID:      obs.MessageID,
		StarMessageID:  nullID(ref.StarMessageID),
		EmbedMessageID: nullID(ref.EmbedMessageID),
		ChannelID:      obs.ChannelID,
		GuildID:        obs.GuildID,
		AuthorID:       obs.AuthorID,
		ReactionCount:  obs.Count,
	}

	err = e.store.CreateStarRecord(ctx, record)
	if errors.Is(err, database.ErrDuplicateKey) {
		// Another writer mirrored this message first; keep theirs.
		log.Info("Star record already exists, falling back to update")
		e.retract(ctx, log, ref)
		return e.adoptExisting(ctx, obs)
	}
	if err != nil {
		e.retract(ctx, log, ref)
		return ActionNone, fmt.Errorf("failed to create star record: %w", err)
	}

	e.remember(obs.MessageID, mirror{ref: ref, count: obs.Count})
	log.Info("Message mirrored to starboard",
		"star_message_id", ref.StarMessageID,
		"embed_message_id", ref.EmbedMessageID,
	)
	return ActionCreated, nil
}

func (e *Engine) adoptExisting(ctx context.Context, obs Observation) (Action, error) {
	if err := e.store.UpdateReactionCount(ctx, obs.MessageID, obs.Count); err != nil {
		return ActionNone, fmt.Errorf("failed to update reaction count: %w", err)
	}

	record, err := e.store.GetStarRecord(ctx, obs.MessageID)
	if err != nil {
		return ActionNone, fmt.Errorf("failed to look up star record: %w", err)
	}
	if record != nil {
		e.remember(obs.MessageID, mirrorFromRecord(record))
	}
	return ActionUpdated, nil
}

func (e *Engine) retract(ctx context.Context, log *slog.Logger, ref ContentRef) {
	retractor, ok := e.poster.(Retractor)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := retractor.RetractContent(ctx, ref); err != nil {
		log.Warn("Failed to retract starboard content", "error", err)
	}
}

func (e *Engine) remember(messageID int64, m mirror) {
	e.mu.Lock()
	e.mirrored[messageID] = m
	n := len(e.mirrored)
	e.mu.Unlock()
	e.metrics.SetTracked(n)
}

func (e *Engine) forget(messageID int64) {
	e.mu.Lock()
	delete(e.mirrored, messageID)
	n := len(e.mirrored)
	e.mu.Unlock()
	e.metrics.SetTracked(n)
}

func mirrorFromRecord(r *database.StarRecord) mirror {
	return mirror{
		ref: ContentRef{
			StarMessageID:  r.StarMessageID.Int64,
			EmbedMessageID: r.EmbedMessageID.Int64,
		},
		count: r.ReactionCount,
	}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
