package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/reelstudio/internal/reliability"
)

// PostgresStore persists artifacts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// The database container often comes up after the service in compose setups.
	err = reliability.Retry(ctx, 5, 250*time.Millisecond, 4*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS script_artifacts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			niche TEXT NOT NULL,
			word_count INTEGER NOT NULL CHECK (word_count >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_artifacts_user_created ON script_artifacts (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS voice_artifacts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			voice_id TEXT NOT NULL,
			voice_name TEXT NOT NULL,
			file_size BIGINT NOT NULL CHECK (file_size >= 0),
			duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0),
			script_id TEXT NOT NULL DEFAULT '',
			audio_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_voice_artifacts_user_created ON voice_artifacts (user_id, created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertScript(ctx context.Context, a ScriptArtifact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO script_artifacts (id, user_id, title, content, niche, word_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Title, a.Content, a.Niche, a.WordCount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert script: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertVoiceClip(ctx context.Context, a VoiceArtifact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_artifacts (id, user_id, title, voice_id, voice_name, file_size, duration_seconds, script_id, audio_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.Title, a.VoiceID, a.VoiceName, a.FileSize, a.DurationSeconds, a.ScriptID, a.AudioKey, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert voice clip: %w", err)
	}
	return nil
}

const (
	scriptColumns = `id, user_id, title, content, niche, word_count, created_at`
	voiceColumns  = `id, user_id, title, voice_id, voice_name, file_size, duration_seconds, script_id, audio_key, created_at`
)

func scanScript(row pgx.Row) (ScriptArtifact, error) {
	var a ScriptArtifact
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Content, &a.Niche, &a.WordCount, &a.CreatedAt)
	return a, err
}

func scanVoice(row pgx.Row) (VoiceArtifact, error) {
	var a VoiceArtifact
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.VoiceID, &a.VoiceName, &a.FileSize, &a.DurationSeconds, &a.ScriptID, &a.AudioKey, &a.CreatedAt)
	return a, err
}

func (s *PostgresStore) GetScript(ctx context.Context, userID, id string) (ScriptArtifact, error) {
	a, err := scanScript(s.pool.QueryRow(ctx,
		`SELECT `+scriptColumns+` FROM script_artifacts WHERE user_id=$1 AND id=$2`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ScriptArtifact{}, ErrNotFound
	}
	if err != nil {
		return ScriptArtifact{}, fmt.Errorf("get script: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetVoiceClip(ctx context.Context, userID, id string) (VoiceArtifact, error) {
	a, err := scanVoice(s.pool.QueryRow(ctx,
		`SELECT `+voiceColumns+` FROM voice_artifacts WHERE user_id=$1 AND id=$2`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return VoiceArtifact{}, ErrNotFound
	}
	if err != nil {
		return VoiceArtifact{}, fmt.Errorf("get voice clip: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListScripts(ctx context.Context, userID string, f ListFilter) ([]ScriptArtifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+scriptColumns+` FROM script_artifacts
		 WHERE user_id=$1 AND ($2 = '' OR title ILIKE $2 OR content ILIKE $2 OR niche ILIKE $2)
		 ORDER BY created_at DESC, id DESC LIMIT $3`,
		userID, likePattern(f.Query), normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	var items []ScriptArtifact
	for rows.Next() {
		a, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script row: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate script rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListVoiceClips(ctx context.Context, userID string, f ListFilter) ([]VoiceArtifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+voiceColumns+` FROM voice_artifacts
		 WHERE user_id=$1 AND ($2 = '' OR title ILIKE $2 OR voice_name ILIKE $2)
		 ORDER BY created_at DESC, id DESC LIMIT $3`,
		userID, likePattern(f.Query), normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query voice clips: %w", err)
	}
	defer rows.Close()

	var items []VoiceArtifact
	for rows.Next() {
		a, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice row: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteScript(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM script_artifacts WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteVoiceClip(ctx context.Context, userID, id string) (VoiceArtifact, error) {
	a, err := scanVoice(s.pool.QueryRow(ctx,
		`DELETE FROM voice_artifacts WHERE user_id=$1 AND id=$2 RETURNING `+voiceColumns, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return VoiceArtifact{}, ErrNotFound
	}
	if err != nil {
		return VoiceArtifact{}, fmt.Errorf("delete voice clip: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CountScripts(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM script_artifacts WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scripts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountVoiceClips(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM voice_artifacts WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count voice clips: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) SumVoiceBytes(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(sum(file_size), 0)::BIGINT FROM voice_artifacts WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum voice bytes: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func likePattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
