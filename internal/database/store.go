package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateStarRecord inserts a new starboard record. Returns ErrDuplicateKey if a record
	// for the same message already exists; the existing row is left untouched.
	CreateStarRecord(ctx context.Context, record *StarRecord) error

	// GetStarRecord retrieves a starboard record by original message ID. Returns nil, nil if not found.
	GetStarRecord(ctx context.Context, messageID int64) (*StarRecord, error)

	// UpdateReactionCount sets the last observed reaction count. Returns ErrNotFound if no record exists.
	UpdateReactionCount(ctx context.Context, messageID int64, count int) error

	// DeleteStarRecord removes a starboard record. Deleting a missing record is not an error.
	DeleteStarRecord(ctx context.Context, messageID int64) error

	// ListStarRecords retrieves every starboard record ordered by message ID.
	ListStarRecords(ctx context.Context) ([]StarRecord, error)

	// IsRunAnnounced reports whether a leaderboard run was already announced.
	IsRunAnnounced(ctx context.Context, runID string) (bool, error)

	// MarkRunAnnounced records a leaderboard run as announced. Marking twice is a no-op.
	MarkRunAnnounced(ctx context.Context, run *AnnouncedRun) error

	// CountAnnouncedRuns returns how many runs have been recorded for a game.
	CountAnnouncedRuns(ctx context.Context, gameID string) (int, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateStarRecord inserts a new starboard record.
// The insert relies on the primary key: concurrent creators race on the same statement
// and exactly one of them affects a row.
func (s *sqlxStore) CreateStarRecord(ctx context.Context, record *StarRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil star record")
	}
	if err := validateStarRecord(record); err != nil {
		return err
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	query := `
        INSERT INTO starboard (message_id, star_message_id, embed_message_id, channel_id, guild_id,
                               author_id, reaction_count, created_at, updated_at)
        VALUES (:message_id, :star_message_id, :embed_message_id, :channel_id, :guild_id,
                :author_id, :reaction_count, :created_at, :updated_at)
        ON CONFLICT (message_id) DO NOTHING;
    `

	result, err := s.db.NamedExecContext(ctx, query, record)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while creating star record",
			"message_id", record.MessageID, "error", err)
		return err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating star record", "message_id", record.MessageID, "error", err)
		return fmt.Errorf("failed to create star record for message %d: %w", record.MessageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for message %d: %w", record.MessageID, err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Star record already exists", "message_id", record.MessageID)
		return fmt.Errorf("star record for message %d: %w", record.MessageID, ErrDuplicateKey)
	}

	s.logger.DebugContext(ctx, "Star record created successfully",
		"message_id", record.MessageID, "reaction_count", record.ReactionCount)
	return nil
}

// GetStarRecord retrieves a starboard record by original message ID. Returns nil, nil if not found.
func (s *sqlxStore) GetStarRecord(ctx context.Context, messageID int64) (*StarRecord, error) {
	if messageID == 0 {
		return nil, fmt.Errorf("message_id cannot be zero")
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var record StarRecord
	query := `SELECT message_id, star_message_id, embed_message_id, channel_id, guild_id, author_id,
	                 reaction_count, created_at, updated_at
	          FROM starboard WHERE message_id = ?`

	err := s.db.GetContext(ctx, &record, query, messageID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No star record found", "message_id", messageID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching star record",
			"message_id", messageID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting star record", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to get star record for message %d: %w", messageID, err)
	}

	return &record, nil
}

// UpdateReactionCount sets the last observed reaction count for an existing record.
func (s *sqlxStore) UpdateReactionCount(ctx context.Context, messageID int64, count int) error {
	if messageID == 0 {
		return fmt.Errorf("message_id cannot be zero")
	}
	if count < 0 {
		return fmt.Errorf("reaction_count cannot be negative")
	}

	query := `UPDATE starboard SET reaction_count = ?, updated_at = ? WHERE message_id = ?`
	result, err := s.db.ExecContext(ctx, query, count, time.Now().UTC(), messageID)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while updating reaction count",
			"message_id", messageID, "error", err)
		return err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating reaction count", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to update reaction count for message %d: %w", messageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for message %d: %w", messageID, err)
	}
	if affected == 0 {
		return fmt.Errorf("star record for message %d: %w", messageID, ErrNotFound)
	}

	s.logger.DebugContext(ctx, "Reaction count updated", "message_id", messageID, "reaction_count", count)
	return nil
}

// DeleteStarRecord removes a starboard record. Missing records are ignored.
func (s *sqlxStore) DeleteStarRecord(ctx context.Context, messageID int64) error {
	if messageID == 0 {
		return fmt.Errorf("message_id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM starboard WHERE message_id = ?`, messageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting star record", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to delete star record for message %d: %w", messageID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted star record", "message_id", messageID, "count", count)
	return nil
}

// ListStarRecords retrieves every starboard record ordered by message ID.
func (s *sqlxStore) ListStarRecords(ctx context.Context) ([]StarRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var records []StarRecord
	query := `SELECT message_id, star_message_id, embed_message_id, channel_id, guild_id, author_id,
	                 reaction_count, created_at, updated_at
	          FROM starboard ORDER BY message_id ASC`

	err := s.db.SelectContext(ctx, &records, query)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while listing star records", "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error listing star records", "error", err)
		return nil, fmt.Errorf("failed to list star records: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed star records", "count", len(records))
	return records, nil
}

// IsRunAnnounced reports whether a leaderboard run was already announced.
func (s *sqlxStore) IsRunAnnounced(ctx context.Context, runID string) (bool, error) {
	if runID == "" {
		return false, fmt.Errorf("run_id cannot be empty")
	}

	var exists int
	err := s.db.GetContext(ctx, &exists, `SELECT 1 FROM announced_runs WHERE run_id = ? LIMIT 1`, runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error checking announced run", "run_id", runID, "error", err)
		return false, fmt.Errorf("failed to check announced run %s: %w", runID, err)
	}
	return true, nil
}

// MarkRunAnnounced records a leaderboard run as announced.
func (s *sqlxStore) MarkRunAnnounced(ctx context.Context, run *AnnouncedRun) error {
	if run == nil {
		return fmt.Errorf("cannot save nil announced run")
	}
	if run.RunID == "" || run.GameID == "" {
		return fmt.Errorf("announced run must have run_id and game_id")
	}
	if run.AnnouncedAt.IsZero() {
		run.AnnouncedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO announced_runs (run_id, game_id, category, weblink, announced_at)
        VALUES (:run_id, :game_id, :category, :weblink, :announced_at)
        ON CONFLICT (run_id) DO NOTHING;
    `
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		s.logger.ErrorContext(ctx, "Error marking run as announced", "run_id", run.RunID, "error", err)
		return fmt.Errorf("failed to mark run %s as announced: %w", run.RunID, err)
	}
	return nil
}

// CountAnnouncedRuns returns how many runs have been recorded for a game.
func (s *sqlxStore) CountAnnouncedRuns(ctx context.Context, gameID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM announced_runs WHERE game_id = ?`, gameID); err != nil {
		s.logger.ErrorContext(ctx, "Error counting announced runs", "game_id", gameID, "error", err)
		return 0, fmt.Errorf("failed to count announced runs for game %s: %w", gameID, err)
	}
	return count, nil
}

// RunSQLMaintenance executes VACUUM and PRAGMA optimize on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

func validateStarRecord(record *StarRecord) error {
	switch {
	case record.MessageID == 0:
		return fmt.Errorf("star record must have a non-zero message_id")
	case record.ChannelID == 0:
		return fmt.Errorf("star record must have a non-zero channel_id")
	case record.GuildID == 0:
		return fmt.Errorf("star record must have a non-zero guild_id")
	case record.AuthorID == 0:
		return fmt.Errorf("star record must have a non-zero author_id")
	case record.ReactionCount < 0:
		return fmt.Errorf("star record reaction_count cannot be negative")
	}
	return nil
}
