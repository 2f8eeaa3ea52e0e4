package facts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gbrlmrll/mnemo/internal/observability"
)

// PostgresStore keeps facts in PostgreSQL. It serves reads from an in-memory
// mirror loaded once at startup and appends write-through, so it honors the
// same contract as the file store: additions never fail the caller.
type PostgresStore struct {
	mu   sync.Mutex
	pool *pgxpool.Pool

	userFacts map[string][]UserFact
	botFacts  []BotFact

	metrics *observability.Metrics
}

func NewPostgresStore(ctx context.Context, databaseURL string, metrics *observability.Metrics) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:      pool,
		userFacts: make(map[string][]UserFact),
		metrics:   metrics,
	}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_facts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stored_by TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_user_facts_user_created ON user_facts (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS bot_facts (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userFacts = make(map[string][]UserFact)
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, stored_by, content, created_at FROM user_facts ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load user facts: %w", err)
	}
	for rows.Next() {
		var userID string
		var f UserFact
		if err := rows.Scan(&userID, &f.StoredBy, &f.Content, &f.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan user fact: %w", err)
		}
		s.userFacts[userID] = append(s.userFacts[userID], f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate user facts: %w", err)
	}
	s.countLoad("user")

	s.botFacts = nil
	rows, err = s.pool.Query(ctx,
		`SELECT content, created_at FROM bot_facts ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load bot facts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f BotFact
		if err := rows.Scan(&f.Content, &f.CreatedAt); err != nil {
			return fmt.Errorf("scan bot fact: %w", err)
		}
		s.botFacts = append(s.botFacts, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate bot facts: %w", err)
	}
	s.countLoad("bot")

	return nil
}

func (s *PostgresStore) AddUserFact(ctx context.Context, userID, displayName, raw string) {
	content := Normalize(raw)
	fact := UserFact{Content: content, StoredBy: displayName, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.userFacts[userID] = append(s.userFacts[userID], fact)
	s.mu.Unlock()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO user_facts (id, user_id, stored_by, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, fact.StoredBy, fact.Content, fact.CreatedAt,
	); err != nil {
		log.Printf("error saving user fact for %s: %v", userID, err)
		s.countPersistFailure("user")
	}

	s.countStored("user")
	log.Printf("stored user fact for %s (%s): %q", displayName, userID, content)
}

func (s *PostgresStore) AddBotFact(ctx context.Context, raw string) {
	content := Normalize(raw)
	fact := BotFact{Content: content, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.botFacts = append(s.botFacts, fact)
	s.mu.Unlock()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO bot_facts (id, content, created_at) VALUES ($1, $2, $3)`,
		uuid.NewString(), fact.Content, fact.CreatedAt,
	); err != nil {
		log.Printf("error saving bot fact: %v", err)
		s.countPersistFailure("bot")
	}

	s.countStored("bot")
	log.Printf("stored bot fact: %q", content)
}

func (s *PostgresStore) UserFacts(userID string) []UserFact {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.userFacts[userID]
	if len(arr) == 0 {
		return nil
	}
	out := make([]UserFact, len(arr))
	copy(out, arr)
	return out
}

func (s *PostgresStore) BotFacts() []BotFact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.botFacts) == 0 {
		return nil
	}
	out := make([]BotFact, len(s.botFacts))
	copy(out, s.botFacts)
	return out
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) countLoad(collection string) {
	if s.metrics != nil {
		s.metrics.FactLoads.WithLabelValues(collection, "ok").Inc()
	}
}

func (s *PostgresStore) countStored(scope string) {
	if s.metrics != nil {
		s.metrics.FactsStored.WithLabelValues(scope).Inc()
	}
}

func (s *PostgresStore) countPersistFailure(collection string) {
	if s.metrics != nil {
		s.metrics.FactPersistFailures.WithLabelValues(collection).Inc()
	}
}
