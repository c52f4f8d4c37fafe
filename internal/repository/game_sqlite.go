package repository

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"arcstore-api/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SQLiteGameRepository implements GameRepository over the game server's SQLite database.
type SQLiteGameRepository struct {
	db *sqlx.DB
}

// NewSQLiteGameRepository opens the game database at dbPath.
// Missing tables are created so a fresh file is usable; existing game schemas
// are left untouched.
func NewSQLiteGameRepository(dbPath string, log *zap.Logger) (*SQLiteGameRepository, error) {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := createGameTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("game repository initialized", zap.String("path", dbPath))
	return &SQLiteGameRepository{db: db}, nil
}

func createGameTables(db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS user (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE,
		password TEXT NOT NULL DEFAULT '',
		ticket INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS present (
		present_id TEXT PRIMARY KEY,
		expire_ts INTEGER,
		description TEXT
	);
	CREATE TABLE IF NOT EXISTS present_item (
		present_id TEXT,
		item_id TEXT,
		type TEXT,
		amount INTEGER,
		PRIMARY KEY (present_id, item_id, type)
	);
	CREATE TABLE IF NOT EXISTS user_present (
		user_id INTEGER,
		present_id TEXT,
		PRIMARY KEY (user_id, present_id)
	);
	CREATE TABLE IF NOT EXISTS user_item (
		user_id INTEGER,
		item_id TEXT,
		type TEXT,
		amount INTEGER,
		PRIMARY KEY (user_id, item_id, type)
	);
	`
	_, err := db.Exec(query)
	return err
}

// DB exposes the underlying handle for seeding and maintenance tools.
func (r *SQLiteGameRepository) DB() *sqlx.DB {
	return r.db
}

// Begin starts a write transaction. The wait for the single connection is
// bounded by ctx.
func (r *SQLiteGameRepository) Begin(ctx context.Context) (GameTx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteGameTx{tx: tx}, nil
}

func (r *SQLiteGameRepository) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return getUser(ctx, r.db, userID)
}

func (r *SQLiteGameRepository) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	return getUserByName(ctx, r.db, name)
}

// SearchUsers returns users whose name contains query, ordered by name.
func (r *SQLiteGameRepository) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	pattern := "%" + escapeLike(query) + "%"

	users := []model.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT user_id, name, ticket FROM user WHERE name LIKE ? ESCAPE '\' ORDER BY name LIMIT ?`,
		pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// VerifyPassword compares against the SHA-256 hex digest stored by the game server.
func (r *SQLiteGameRepository) VerifyPassword(ctx context.Context, name, password string) (*model.User, error) {
	var row struct {
		model.User
		Password string `db:"password"`
	}

	err := r.db.GetContext(ctx, &row, `SELECT user_id, name, ticket, password FROM user WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(row.Password))) != 1 {
		return nil, ErrUserNotFound
	}

	user := row.User
	return &user, nil
}

// ListPendingPresents returns the unexpired presents linked to the user with their lines.
func (r *SQLiteGameRepository) ListPendingPresents(ctx context.Context, userID, nowMillis int64) ([]model.Present, error) {
	presents := []model.Present{}
	err := r.db.SelectContext(ctx, &presents, `
		SELECT p.present_id, p.expire_ts, p.description
		FROM user_present up
		JOIN present p ON p.present_id = up.present_id
		WHERE up.user_id = ? AND p.expire_ts >= ?
		ORDER BY p.expire_ts`, userID, nowMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to list presents: %w", err)
	}
	if len(presents) == 0 {
		return presents, nil
	}

	ids := make([]string, len(presents))
	index := make(map[string]int, len(presents))
	for i, p := range presents {
		ids[i] = p.PresentID
		index[p.PresentID] = i
	}

	query, args, err := sqlx.In(
		`SELECT present_id, item_id, type, amount FROM present_item WHERE present_id IN (?) ORDER BY present_id, item_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build item query: %w", err)
	}

	var items []model.PresentItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list present items: %w", err)
	}
	for _, item := range items {
		i := index[item.PresentID]
		presents[i].Items = append(presents[i].Items, item)
	}

	return presents, nil
}

func (r *SQLiteGameRepository) ListBanners(ctx context.Context, userID int64) ([]model.BannerItem, error) {
	return listBanners(ctx, r.db, userID)
}

// ReapExpired runs a reap in its own transaction.
func (r *SQLiteGameRepository) ReapExpired(ctx context.Context, prefix string, nowMillis int64) (int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := tx.ReapExpired(ctx, prefix, nowMillis)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// GetStats returns statistics about the game database.
func (r *SQLiteGameRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var users, presents, links int64
	if err := r.db.GetContext(ctx, &users, "SELECT COUNT(*) FROM user"); err != nil {
		return nil, err
	}
	if err := r.db.GetContext(ctx, &presents, "SELECT COUNT(*) FROM present"); err != nil {
		return nil, err
	}
	if err := r.db.GetContext(ctx, &links, "SELECT COUNT(*) FROM user_present"); err != nil {
		return nil, err
	}
	stats["total_users"] = users
	stats["total_presents"] = presents
	stats["pending_links"] = links

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.GetContext(ctx, &pageCount, "PRAGMA page_count")
	r.db.GetContext(ctx, &pageSize, "PRAGMA page_size")
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

func (r *SQLiteGameRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteGameRepository) Close() error {
	return r.db.Close()
}

// sqliteGameTx implements GameTx.
type sqliteGameTx struct {
	tx *sqlx.Tx
}

func (t *sqliteGameTx) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return getUser(ctx, t.tx, userID)
}

func (t *sqliteGameTx) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	return getUserByName(ctx, t.tx, name)
}

func (t *sqliteGameTx) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var ticket int64
	err := t.tx.GetContext(ctx, &ticket, `SELECT ticket FROM user WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return ticket, nil
}

func (t *sqliteGameTx) AdjustBalance(ctx context.Context, userID, delta int64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE user SET ticket = ticket + ? WHERE user_id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *sqliteGameTx) RenameUser(ctx context.Context, userID int64, name string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE user SET name = ? WHERE user_id = ?`, name, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("failed to rename user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (t *sqliteGameTx) UpsertPresent(ctx context.Context, presentID string, expireMillis int64, description string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO present (present_id, expire_ts, description)
		VALUES (?, ?, ?)
		ON CONFLICT(present_id) DO UPDATE SET
			expire_ts = excluded.expire_ts,
			description = excluded.description`,
		presentID, expireMillis, description)
	if err != nil {
		return fmt.Errorf("failed to upsert present %s: %w", presentID, wrapUnique(err))
	}
	return nil
}

func (t *sqliteGameTx) SetPresentItems(ctx context.Context, presentID string, lines []model.PresentItem) error {
	for _, line := range lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO present_item (present_id, item_id, type, amount)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(present_id, item_id, type) DO UPDATE SET amount = excluded.amount`,
			presentID, line.ItemID, line.Type, line.Amount)
		if err != nil {
			return fmt.Errorf("failed to set item %s on present %s: %w", line.ItemID, presentID, wrapUnique(err))
		}
	}
	return nil
}

func (t *sqliteGameTx) LinkRecipient(ctx context.Context, userID int64, presentID string) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_present (user_id, present_id) VALUES (?, ?)
		ON CONFLICT(user_id, present_id) DO NOTHING`, userID, presentID)
	if err != nil {
		return fmt.Errorf("failed to link present %s: %w", presentID, wrapUnique(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateLink
	}
	return nil
}

func (t *sqliteGameTx) IsLinked(ctx context.Context, userID int64, presentID string) (bool, error) {
	var linked bool
	err := t.tx.GetContext(ctx, &linked,
		`SELECT EXISTS(SELECT 1 FROM user_present WHERE user_id = ? AND present_id = ?)`, userID, presentID)
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return linked, nil
}

func (t *sqliteGameTx) ListBanners(ctx context.Context, userID int64) ([]model.BannerItem, error) {
	return listBanners(ctx, t.tx, userID)
}

func (t *sqliteGameTx) SetBanner(ctx context.Context, userID int64, from, to model.BannerItem) error {
	if from == to {
		return nil
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE user_item SET item_id = ?, type = ? WHERE user_id = ? AND item_id = ? AND type = ?`,
		to.ItemID, to.Type, userID, from.ItemID, from.Type)
	if err != nil {
		return fmt.Errorf("failed to set banner %s: %w", from.ItemID, wrapUnique(err))
	}
	return nil
}

// expiredByPrefix selects the presents a reap removes.
const expiredByPrefix = `SELECT present_id FROM present
	WHERE substr(description, 1, length(?)) = ? AND expire_ts < ?`

func (t *sqliteGameTx) ReapExpired(ctx context.Context, prefix string, nowMillis int64) (int64, error) {
	args := []interface{}{prefix, prefix, nowMillis}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM present_item WHERE present_id IN (`+expiredByPrefix+`)`, args...); err != nil {
		return 0, fmt.Errorf("failed to reap present items: %w", err)
	}
	// Links go too, so user_present never points at a deleted present.
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM user_present WHERE present_id IN (`+expiredByPrefix+`)`, args...); err != nil {
		return 0, fmt.Errorf("failed to reap present links: %w", err)
	}

	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM present WHERE present_id IN (`+expiredByPrefix+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reap presents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (t *sqliteGameTx) HasLivePendingOrder(ctx context.Context, userID int64, prefix string, nowMillis int64) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM user_present up
			JOIN present p ON p.present_id = up.present_id
			WHERE up.user_id = ?
			  AND substr(p.description, 1, length(?)) = ?
			  AND p.expire_ts >= ?
		)`, userID, prefix, prefix, nowMillis)
	if err != nil {
		return false, fmt.Errorf("failed to check pending orders: %w", err)
	}
	return exists, nil
}

func (t *sqliteGameTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is safe to call after Commit.
func (t *sqliteGameTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func getUser(ctx context.Context, q sqlx.QueryerContext, userID int64) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, q, &user, `SELECT user_id, name, ticket FROM user WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func getUserByName(ctx context.Context, q sqlx.QueryerContext, name string) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, q, &user, `SELECT user_id, name, ticket FROM user WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func listBanners(ctx context.Context, q sqlx.QueryerContext, userID int64) ([]model.BannerItem, error) {
	banners := []model.BannerItem{}
	err := sqlx.SelectContext(ctx, q, &banners,
		`SELECT item_id, type FROM user_item WHERE user_id = ? AND type IN (?, ?) ORDER BY item_id`,
		userID, model.BannerShown, model.BannerHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	return banners, nil
}

// wrapUnique tags unexpected uniqueness violations with ErrConflict.
func wrapUnique(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Ensure SQLiteGameRepository implements GameRepository
var _ GameRepository = (*SQLiteGameRepository)(nil)
