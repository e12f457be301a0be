// Package sqlite archives finished games in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"
	"zhajinhua/internal/storage/sqlite/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	ErrAlreadyArchived = errors.New("game already archived")
	ErrNotFound        = errors.New("game not found")
)

// GameRecord is the headline row of an archived game.
type GameRecord struct {
	GameID      string
	Header      string
	HandCount   int
	WinnerID    string
	FinalPot    int64
	TotalRounds int
	Summary     *domain.FinalSummary
	ClosedAt    time.Time
}

// Store persists game archives in SQLite. It implements ports.LogSink.
type Store struct {
	sqlDB *sql.DB
}

var _ ports.LogSink = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append writes one archive in a single transaction.
func (s *Store) Append(ctx context.Context, archive ports.GameArchive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(archive.GameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	closedAt := archive.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	var (
		winner      string
		pot         int64
		rounds      int
		summaryJSON sql.NullString
	)
	if sum := archive.Summary; sum != nil {
		winner, pot, rounds = sum.WinnerID, sum.FinalPot, sum.TotalRounds
		data, err := json.Marshal(sum)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO games (
		   game_id,
		   header,
		   hand_count,
		   winner_id,
		   final_pot,
		   total_rounds,
		   summary_json,
		   closed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID,
		archive.Header,
		archive.HandCount,
		winner,
		pot,
		rounds,
		summaryJSON,
		toMillis(closedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyArchived
		}
		return fmt.Errorf("insert game: %w", err)
	}

	for _, entries := range [][]eventlog.Entry{archive.Public, archive.Secret, archive.Cheat} {
		for _, e := range entries {
			if err := insertEvent(ctx, tx, gameID, e); err != nil {
				return err
			}
		}
	}
	for i, line := range archive.Transcript {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_transcript (game_id, line_no, line) VALUES (?, ?, ?)`,
			gameID, i, line,
		); err != nil {
			return fmt.Errorf("insert transcript line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, gameID string, e eventlog.Entry) error {
	fields, err := nullJSON(e.Fields, len(e.Fields) > 0)
	if err != nil {
		return fmt.Errorf("encode event %d fields: %w", e.Seq, err)
	}
	recipients, err := nullJSON(e.Recipients, len(e.Recipients) > 0)
	if err != nil {
		return fmt.Errorf("encode event %d recipients: %w", e.Seq, err)
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO game_events (
		   game_id,
		   seq,
		   category,
		   kind,
		   hand_count,
		   player_id,
		   message,
		   fields_json,
		   recipients_json,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID,
		int64(e.Seq),
		string(e.Category),
		e.Kind,
		e.HandCount,
		e.PlayerID,
		e.Message,
		fields,
		recipients,
		toMillis(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", e.Seq, err)
	}
	return nil
}

// GetGame returns one archived game by ID.
func (s *Store) GetGame(ctx context.Context, gameID string) (GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return GameRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return GameRecord{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT game_id, header, hand_count, winner_id, final_pot, total_rounds, summary_json, closed_at
		 FROM games WHERE game_id = ?`,
		strings.TrimSpace(gameID),
	)
	rec, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GameRecord{}, ErrNotFound
	}
	return rec, err
}

// ListGames returns the most recently closed games first.
func (s *Store) ListGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT game_id, header, hand_count, winner_id, final_pot, total_rounds, summary_json, closed_at
		 FROM games ORDER BY closed_at DESC, game_id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return out, nil
}

// Events returns a game's entries of one category in sequence order.
func (s *Store) Events(ctx context.Context, gameID string, cat eventlog.Category) ([]eventlog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, category, kind, hand_count, player_id, message, fields_json, recipients_json, created_at
		 FROM game_events WHERE game_id = ? AND category = ? ORDER BY seq`,
		gameID, string(cat),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []eventlog.Entry
	for rows.Next() {
		var (
			e                  eventlog.Entry
			seq, created       int64
			category           string
			fields, recipients sql.NullString
		)
		if err := rows.Scan(&seq, &category, &e.Kind, &e.HandCount, &e.PlayerID, &e.Message, &fields, &recipients, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Category = eventlog.Category(category)
		e.Timestamp = fromMillis(created)
		if fields.Valid {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("decode event %d fields: %w", seq, err)
			}
		}
		if recipients.Valid {
			if err := json.Unmarshal([]byte(recipients.String), &e.Recipients); err != nil {
				return nil, fmt.Errorf("decode event %d recipients: %w", seq, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Transcript returns a game's transcript lines in order.
func (s *Store) Transcript(ctx context.Context, gameID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT line FROM game_transcript WHERE game_id = ? ORDER BY line_no`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (GameRecord, error) {
	var (
		rec     GameRecord
		summary sql.NullString
		closed  int64
	)
	if err := row.Scan(&rec.GameID, &rec.Header, &rec.HandCount, &rec.WinnerID, &rec.FinalPot, &rec.TotalRounds, &summary, &closed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GameRecord{}, err
		}
		return GameRecord{}, fmt.Errorf("scan game: %w", err)
	}
	rec.ClosedAt = fromMillis(closed)
	if summary.Valid {
		rec.Summary = &domain.FinalSummary{}
		if err := json.Unmarshal([]byte(summary.String), rec.Summary); err != nil {
			return GameRecord{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	return rec, nil
}

func nullJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "games.game_id")
}

const migrationTable = "schema_migrations"

// applyMigrations runs each embedded .sql file at most once, in name order.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(upMigration(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)", file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upMigration returns the SQL in the -- +migrate Up section.
func upMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len("-- +migrate Up"):]
	if downIdx := strings.Index(body, "-- +migrate Down"); downIdx != -1 {
		body = body[:downIdx]
	}
	return body
}
