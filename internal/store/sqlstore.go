package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL-hosted stores
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL-hosted stores
)

// SQLStore is the sqlx-backed RecordStore implementation
// (supports both MySQL and PostgreSQL)
type SQLStore struct {
	db *sqlx.DB
}

// Columns each table is allowed to select on or patch. Dynamic identifiers
// never reach the SQL text unless they appear here.
var allowedColumns = map[string]map[string]bool{
	TableThreads: {
		"conversation_id": true, "contact_name": true, "contact_email": true,
		"contact_phone": true, "contact_location": true,
		"is_read": true, "flag": true, "flag_for_review": true,
		"flag_review_override": true, "busy": true, "spam": true,
		"lcp_enabled": true, "completed": true, "deleted": true,
		"ai_summary": true, "budget_range": true,
		"preferred_property_types": true, "timeline": true,
		"lcp_flag_threshold": true, "notes": true,
		"created_at": true, "updated_at": true, "last_message_at": true,
	},
	TableMessages: {
		"id": true, "conversation_id": true, "type": true,
		"sender_name": true, "sender_email": true, "subject": true,
		"body": true, "timestamp": true, "ev_score": true, "ai_summary": true,
	},
}

// NewSQLStore opens a database-backed record store (supports both MySQL and
// PostgreSQL, auto-detected from the URL)
func NewSQLStore(databaseURL string) (*SQLStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	const driverPostgres = "postgres"
	driver := "mysql"
	if len(databaseURL) > 8 && databaseURL[:8] == driverPostgres {
		driver = driverPostgres
	}

	db, err := sqlx.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping record store: %w", err)
	}

	s := &SQLStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create record store tables: %w", err)
	}

	return s, nil
}

// NewSQLStoreFromDB wraps an existing connection; used by tests and health checks
func NewSQLStoreFromDB(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB returns the underlying connection
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Close releases the underlying connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// createTables creates the thread and message tables in the database
func (s *SQLStore) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			conversation_id VARCHAR(64) PRIMARY KEY,
			contact_name TEXT,
			contact_email TEXT,
			contact_phone TEXT,
			contact_location TEXT,
			is_read BOOLEAN DEFAULT FALSE,
			flag BOOLEAN DEFAULT FALSE,
			flag_for_review BOOLEAN DEFAULT FALSE,
			flag_review_override BOOLEAN DEFAULT FALSE,
			busy BOOLEAN DEFAULT FALSE,
			spam BOOLEAN DEFAULT FALSE,
			lcp_enabled BOOLEAN DEFAULT FALSE,
			completed BOOLEAN DEFAULT FALSE,
			deleted BOOLEAN DEFAULT FALSE,
			ai_summary TEXT,
			budget_range TEXT,
			preferred_property_types TEXT,
			timeline TEXT,
			lcp_flag_threshold DOUBLE PRECISION DEFAULT 70,
			notes TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_message_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_last_message_at ON threads(last_message_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			conversation_id VARCHAR(64) NOT NULL,
			type VARCHAR(20) NOT NULL,
			sender_name TEXT,
			sender_email TEXT,
			subject TEXT,
			body TEXT,
			timestamp TIMESTAMP NOT NULL,
			ev_score DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			// Ignore "already exists" errors
			continue
		}
	}

	return nil
}

// Select reads raw records matching the params
func (s *SQLStore) Select(ctx context.Context, p SelectParams) (*SelectResult, error) {
	cols, ok := allowedColumns[p.Table]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", p.Table)
	}

	query := fmt.Sprintf("SELECT * FROM %s", p.Table)
	var args []interface{}
	if p.Key != "" {
		if !cols[p.Key] {
			return nil, fmt.Errorf("unknown column %s in table %s", p.Key, p.Table)
		}
		query += fmt.Sprintf(" WHERE %s = ?", p.Key)
		args = append(args, p.Value)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", p.Table, err)
	}
	defer func() { _ = rows.Close() }()

	result := &SelectResult{Items: []RawRecord{}}
	for rows.Next() {
		item := RawRecord{}
		if err := rows.MapScan(item); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", p.Table, err)
		}
		// MapScan yields []byte for text columns on some drivers
		for k, v := range item {
			if b, isBytes := v.([]byte); isBytes {
				item[k] = string(b)
			}
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s records: %w", p.Table, err)
	}

	return result, nil
}

// Update applies a field patch to the records matching the params
func (s *SQLStore) Update(ctx context.Context, p UpdateParams) (*UpdateResult, error) {
	cols, ok := allowedColumns[p.Table]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", p.Table)
	}
	if p.Key == "" || !cols[p.Key] {
		return nil, fmt.Errorf("invalid key column %q for table %s", p.Key, p.Table)
	}
	if len(p.Patch) == 0 {
		return nil, fmt.Errorf("empty patch for table %s", p.Table)
	}

	// Deterministic column order keeps the generated SQL stable
	patchCols := make([]string, 0, len(p.Patch))
	for col := range p.Patch {
		if !cols[col] {
			return nil, fmt.Errorf("unknown column %s in patch for table %s", col, p.Table)
		}
		patchCols = append(patchCols, col)
	}
	sort.Strings(patchCols)

	setClauses := make([]string, 0, len(patchCols))
	args := make([]interface{}, 0, len(patchCols)+1)
	for _, col := range patchCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", col))
		args = append(args, p.Patch[col])
	}
	args = append(args, p.Value)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		p.Table, strings.Join(setClauses, ", "), p.Key)

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", p.Table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows; the exec itself succeeded
		return &UpdateResult{Success: true}, nil
	}

	return &UpdateResult{Success: affected > 0}, nil
}
