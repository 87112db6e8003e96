package langpref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable store variant. Rows survive restarts and
// carry no expiry.
type PostgresStore struct {
	pool   querier
	logger *slog.Logger
}

func NewPostgresStore(log *slog.Logger, pool querier) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresStore{
		pool:   pool,
		logger: log.With(slog.String("component", "langpref")),
	}
}

// Init creates the preference table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS language_preferences (
			user_id    TEXT PRIMARY KEY,
			lang       TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("init language_preferences: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (string, error) {
	var lang string
	err := s.pool.QueryRow(ctx,
		`SELECT lang FROM language_preferences WHERE user_id = $1`, userID,
	).Scan(&lang)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get preference: %w", err)
	}
	return lang, nil
}

func (s *PostgresStore) Set(ctx context.Context, userID, lang string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(lang) == "" {
		return fmt.Errorf("language tag is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO language_preferences (user_id, lang)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET lang = EXCLUDED.lang, updated_at = now()`,
		userID, lang)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
