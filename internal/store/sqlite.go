package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: each statement takes it for its own duration and hands
	// it back, which keeps SQLite free of writer lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        username TEXT,
        question TEXT,
        answer TEXT,
        source TEXT NOT NULL DEFAULT '',
        chat_type TEXT NOT NULL DEFAULT 'text',
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, id);

    CREATE TABLE IF NOT EXISTS user_portfolios (
        user_id TEXT PRIMARY KEY,
        balance TEXT NOT NULL DEFAULT '10000',
        btc TEXT NOT NULL DEFAULT '0',
        eth TEXT NOT NULL DEFAULT '0',
        sol TEXT NOT NULL DEFAULT '0',
        trades INTEGER NOT NULL DEFAULT 0,
        last_trade DATETIME,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Portfolio methods

// GetOrCreatePortfolio returns the portfolio row for userID, inserting the
// default row first if none exists. INSERT OR IGNORE keeps concurrent first
// reads down to a single row.
func (s *SQLiteStore) GetOrCreatePortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_portfolios (user_id, balance, created_at) VALUES (?, ?, ?)",
		userID, DefaultBalance.String(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert default portfolio: %w", err)
	}
	return s.getPortfolio(ctx, userID)
}

func (s *SQLiteStore) getPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	var (
		balance, btc, eth, sol string
		lastTrade              sql.NullTime
	)
	p := NewDefaultPortfolio(userID)
	err := s.db.QueryRowContext(ctx,
		"SELECT balance, btc, eth, sol, trades, last_trade, created_at FROM user_portfolios WHERE user_id = ?",
		userID).Scan(&balance, &btc, &eth, &sol, &p.Trades, &lastTrade, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}

	if p.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance %q for user %s: %w", balance, userID, err)
	}
	for asset, raw := range map[string]string{AssetBitcoin: btc, AssetEthereum: eth, AssetSolana: sol} {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s holding %q for user %s: %w", asset, raw, userID, err)
		}
		p.Holdings[asset] = amount
	}
	if lastTrade.Valid {
		p.LastTrade = &lastTrade.Time
	}
	return p, nil
}

// CountPortfolios is used by tests and the initdb command.
func (s *SQLiteStore) CountPortfolios(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_portfolios").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count portfolios: %w", err)
	}
	return n, nil
}

// Conversation methods

// SaveConversation appends a record. Records are never updated or deleted.
func (s *SQLiteStore) SaveConversation(ctx context.Context, c *Conversation) error {
	if c.ChatType == "" {
		c.ChatType = ChatTypeText
	}
	c.Timestamp = time.Now().UTC()

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO conversations (user_id, username, question, answer, source, chat_type, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare conversation insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, c.UserID, c.Username, c.Question, c.Answer, c.Source, c.ChatType, c.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute conversation insert: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetConversationsByUserID(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	query := `
        SELECT id, user_id, username, question, answer, source, chat_type, timestamp
        FROM conversations
        WHERE user_id = ?
        ORDER BY id DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		var username sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &username, &c.Question, &c.Answer, &c.Source, &c.ChatType, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if username.Valid {
			c.Username = &username.String
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *SQLiteStore) CountConversations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}
