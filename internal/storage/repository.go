// Package storage keeps an append-only SQLite journal of message
// deliveries. It is an audit trail; engine state is never rebuilt from it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bankbot/internal/log"
	"bankbot/internal/ports"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// Journal records delivery attempts.
type Journal struct {
	db     *sql.DB
	logger *log.Logger
}

var _ ports.DeliveryJournal = (*Journal)(nil)

// NewJournal opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewJournal(dbPath string, logger *log.Logger) (*Journal, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	j := &Journal{db: db, logger: logger.WithComponent(log.ComponentJournal)}
	j.logger.Debug("Delivery journal ready", "path", dbPath, "schema_version", version)
	return j, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// RecordDelivery implements ports.DeliveryJournal
func (j *Journal) RecordDelivery(ctx context.Context, d ports.Delivery) error {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, cycle_id, channel, text, delivered, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, d.CycleID, d.Channel, d.Text, d.Delivered, d.Error, d.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	j.logger.DebugContext(ctx, "Delivery recorded",
		"id", id,
		log.FieldChannel, d.Channel,
		"delivered", d.Delivered)
	return nil
}

// RecentDeliveries returns up to limit deliveries, newest first.
func (j *Journal) RecentDeliveries(ctx context.Context, limit int) ([]ports.Delivery, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT cycle_id, channel, text, delivered, error, created_at
		 FROM deliveries ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []ports.Delivery
	for rows.Next() {
		var (
			d  ports.Delivery
			at string
		)
		if err := rows.Scan(&d.CycleID, &d.Channel, &d.Text, &d.Delivered, &d.Error, &at); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if d.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse delivery time %q: %w", at, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}
