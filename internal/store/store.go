// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists signal cards to a SQLite database so that
// repeated scans accumulate a local history of what was seen and when.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Store manages the signal card SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the card database at cfg.Path, creating the
// schema and any missing parent directories.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			url TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			mode TEXT NOT NULL,
			title TEXT,
			source TEXT,
			summary TEXT,
			date TEXT,
			final_score REAL,
			typology TEXT,
			keywords TEXT,
			status TEXT,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_topic ON cards(topic)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_typology ON cards(typology)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveCards upserts the cards from a scan. A card seen before keeps its
// first_seen timestamp and status; scores and text refresh to the latest
// observation.
func (s *Store) SaveCards(ctx context.Context, topic, mode string, cards []types.SignalCard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cards (url, topic, mode, title, source, summary, date,
			final_score, typology, keywords, status, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			topic=excluded.topic, mode=excluded.mode, title=excluded.title,
			source=excluded.source, summary=excluded.summary, date=excluded.date,
			final_score=excluded.final_score, typology=excluded.typology,
			keywords=excluded.keywords, last_seen=excluded.last_seen`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, card := range cards {
		if card.URL == "" {
			continue
		}
		keywordsJSON, _ := json.Marshal(card.RelatedKeywords)
		_, err := stmt.ExecContext(ctx,
			card.URL, topic, mode, card.Title, card.Source, card.Summary,
			card.Date, card.FinalScore, card.Typology,
			string(keywordsJSON), card.Status, now, now,
		)
		if err != nil {
			return fmt.Errorf("upserting card %s: %w", card.URL, err)
		}
	}

	return tx.Commit()
}

// FindByURL returns the stored card for a URL, or sql.ErrNoRows when the
// URL has never been saved.
func (s *Store) FindByURL(ctx context.Context, url string) (types.SignalCard, error) {
	var card types.SignalCard
	var keywordsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT url, title, source, summary, date, final_score, typology, keywords, status
		 FROM cards WHERE url = ?`, url,
	).Scan(&card.URL, &card.Title, &card.Source, &card.Summary, &card.Date,
		&card.FinalScore, &card.Typology, &keywordsJSON, &card.Status)
	if err != nil {
		return types.SignalCard{}, err
	}
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &card.RelatedKeywords); err != nil {
			return types.SignalCard{}, fmt.Errorf("parsing keywords for %s: %w", url, err)
		}
	}
	return card, nil
}

// UpdateStatus marks a stored card, e.g. as reviewed or dismissed.
func (s *Store) UpdateStatus(ctx context.Context, url, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET status = ? WHERE url = ?`, status, url)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no stored card for %s", url)
	}
	return nil
}

// RecentByTopic returns the most recently seen cards for a topic, newest
// first, up to limit.
func (s *Store) RecentByTopic(ctx context.Context, topic string, limit int) ([]types.SignalCard, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, source, summary, date, final_score, typology, keywords, status
		 FROM cards WHERE topic = ? ORDER BY last_seen DESC, final_score DESC LIMIT ?`,
		topic, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var cards []types.SignalCard
	for rows.Next() {
		var card types.SignalCard
		var keywordsJSON string
		if err := rows.Scan(&card.URL, &card.Title, &card.Source, &card.Summary,
			&card.Date, &card.FinalScore, &card.Typology, &keywordsJSON, &card.Status); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		if keywordsJSON != "" {
			if err := json.Unmarshal([]byte(keywordsJSON), &card.RelatedKeywords); err != nil {
				return nil, fmt.Errorf("parsing keywords for %s: %w", card.URL, err)
			}
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}
