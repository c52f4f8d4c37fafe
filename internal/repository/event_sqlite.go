package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arcstore-api/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// limitedPrizes are seeded into prize_status on first start.
var limitedPrizes = []struct{ id, name string }{
	{"badge", "sense of wonder吧唧"},
	{"streamer", "克丽斯腾流麻"},
	{"stub", "克丽斯腾票根"},
}

// SQLiteEventRepository implements EventRepository over the event database.
type SQLiteEventRepository struct {
	db *sqlx.DB
}

// NewSQLiteEventRepository opens the event database at dbPath.
func NewSQLiteEventRepository(dbPath string, log *zap.Logger) (*SQLiteEventRepository, error) {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := createEventTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("event repository initialized", zap.String("path", dbPath))
	return &SQLiteEventRepository{db: db}, nil
}

func createEventTables(db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS lottery (
		user_id INTEGER NOT NULL,
		draw_date TEXT NOT NULL,
		prize TEXT,
		draw_time TEXT NOT NULL,
		PRIMARY KEY (user_id, draw_date)
	);
	CREATE TABLE IF NOT EXISTS prize_status (
		prize_id TEXT PRIMARY KEY,
		prize_name TEXT NOT NULL,
		is_claimed INTEGER DEFAULT 0,
		claimed_by INTEGER,
		claimed_time TEXT
	);
	`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	for _, p := range limitedPrizes {
		if _, err := db.Exec(`INSERT OR IGNORE INTO prize_status (prize_id, prize_name) VALUES (?, ?)`, p.id, p.name); err != nil {
			return fmt.Errorf("failed to seed prize %s: %w", p.id, err)
		}
	}
	return nil
}

func (r *SQLiteEventRepository) GetDraw(ctx context.Context, userID int64, date string) (*model.LotteryDraw, error) {
	var draw model.LotteryDraw
	err := r.db.GetContext(ctx, &draw,
		`SELECT user_id, draw_date, COALESCE(prize, '') AS prize, draw_time FROM lottery WHERE user_id = ? AND draw_date = ?`, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	return &draw, nil
}

func (r *SQLiteEventRepository) ListPrizes(ctx context.Context) ([]model.LimitedPrize, error) {
	prizes := []model.LimitedPrize{}
	err := r.db.SelectContext(ctx, &prizes, `
		SELECT prize_id, prize_name, COALESCE(is_claimed, 0) AS is_claimed, claimed_by, claimed_time
		FROM prize_status ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	return prizes, nil
}

func (r *SQLiteEventRepository) HasPrize(ctx context.Context, userID int64, prize string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM lottery WHERE user_id = ? AND prize = ?)`, userID, prize)
	if err != nil {
		return false, fmt.Errorf("failed to check prize: %w", err)
	}
	return exists, nil
}

func (r *SQLiteEventRepository) RecordDraw(ctx context.Context, draw *model.LotteryDraw) error {
	return insertDraw(ctx, r.db, draw)
}

// ClaimPrize takes a limited prize with a conditional update so only one
// concurrent winner can succeed, then records the draw in the same transaction.
func (r *SQLiteEventRepository) ClaimPrize(ctx context.Context, prizeID string, draw *model.LotteryDraw) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE prize_status SET is_claimed = 1, claimed_by = ?, claimed_time = ?
		WHERE prize_id = ? AND COALESCE(is_claimed, 0) = 0`, draw.UserID, draw.DrawTime, prizeID)
	if err != nil {
		return fmt.Errorf("failed to claim prize: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPrizeClaimed
	}

	if err := insertDraw(ctx, tx, draw); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) ListDraws(ctx context.Context, userID int64, limit int) ([]model.LotteryDraw, error) {
	draws := []model.LotteryDraw{}
	err := r.db.SelectContext(ctx, &draws, `
		SELECT user_id, draw_date, COALESCE(prize, '') AS prize, draw_time FROM lottery
		WHERE user_id = ? ORDER BY draw_date DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	return draws, nil
}

func (r *SQLiteEventRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteEventRepository) Close() error {
	return r.db.Close()
}

func insertDraw(ctx context.Context, e sqlx.ExecerContext, draw *model.LotteryDraw) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO lottery (user_id, draw_date, prize, draw_time) VALUES (?, ?, ?, ?)`,
		draw.UserID, draw.DrawDate, draw.Prize, draw.DrawTime)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyDrawn
		}
		return fmt.Errorf("failed to record draw: %w", err)
	}
	return nil
}

// Ensure SQLiteEventRepository implements EventRepository
var _ EventRepository = (*SQLiteEventRepository)(nil)
