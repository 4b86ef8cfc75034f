package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	applog "flowbuilder/internal/platform/log"
)

const defaultTable = "flow_kv"

// KVStore PostgreSQL 单表键值存储
type KVStore struct {
	db     *sql.DB
	table  string
	quoted string // 已转义的表名，拼接 SQL 只用这个
}

// NewKVStore 创建 PostgreSQL 键值存储，table 为空时使用 flow_kv
func NewKVStore(db *sql.DB, table string) *KVStore {
	if table == "" {
		table = defaultTable
	}
	return &KVStore{db: db, table: table, quoted: pq.QuoteIdentifier(table)}
}

// EnsureTable 确保键值表存在
func (s *KVStore) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		key        VARCHAR(255) PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.quoted)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s table: %w", s.table, err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.quoted)

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.quoted)

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	applog.Debug("[Storage/Postgres] Key written", "table", s.table, "key", key, "bytes", len(value))
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.quoted)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
