package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arcstore-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// SQLCatalogRepository implements CatalogRepository on SQLite, MySQL or PostgreSQL.
type SQLCatalogRepository struct {
	db      *sqlx.DB
	dialect string
	columns string
}

// NewCatalogRepository opens the catalog database.
// dbType is sqlite, mysql or postgres; for sqlite dsn is a file path.
func NewCatalogRepository(dbType, dsn string, log *zap.Logger) (*SQLCatalogRepository, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch dbType {
	case "mysql":
		db, err = openPooled("mysql", dsn)
	case "postgres", "postgresql":
		db, err = openPooled("postgres", dsn)
	case "sqlite", "":
		db, err = OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported catalog database type: %s", dbType)
	}
	if err != nil {
		return nil, err
	}

	repo := NewCatalogRepositoryFromDB(db)
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("catalog repository initialized", zap.String("driver", db.DriverName()))
	return repo, nil
}

// NewCatalogRepositoryFromDB wraps an open handle. The dialect follows db.DriverName().
func NewCatalogRepositoryFromDB(db *sqlx.DB) *SQLCatalogRepository {
	dialect := db.DriverName()
	return &SQLCatalogRepository{
		db:      db,
		dialect: dialect,
		columns: "id, name, price, stock, " + quoteIdent(dialect, "limit") + ", item_id, item_type",
	}
}

func openPooled(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	// Connection pool settings for high traffic
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}

func (r *SQLCatalogRepository) createTables() error {
	limit := quoteIdent(r.dialect, "limit")

	var query string
	switch r.dialect {
	case "mysql":
		query = `CREATE TABLE IF NOT EXISTS store_item (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL,
			stock BIGINT NOT NULL DEFAULT -1,
			` + limit + ` BIGINT NULL,
			item_id VARCHAR(255) NOT NULL,
			item_type VARCHAR(64) NOT NULL
		)`
	case "postgres":
		query = `CREATE TABLE IF NOT EXISTS store_item (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price BIGINT NOT NULL,
			stock BIGINT NOT NULL DEFAULT -1,
			` + limit + ` BIGINT,
			item_id TEXT NOT NULL,
			item_type TEXT NOT NULL
		)`
	default:
		query = `CREATE TABLE IF NOT EXISTS store_item (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price INTEGER NOT NULL,
			stock INTEGER NOT NULL DEFAULT -1,
			` + limit + ` INTEGER,
			item_id TEXT NOT NULL,
			item_type TEXT NOT NULL
		)`
	}

	_, err := r.db.Exec(query)
	return err
}

// GetItem returns a store item or ErrProductNotFound.
func (r *SQLCatalogRepository) GetItem(ctx context.Context, id int64) (*model.StoreItem, error) {
	var item model.StoreItem
	query := r.db.Rebind(`SELECT ` + r.columns + ` FROM store_item WHERE id = ?`)

	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get store item: %w", err)
	}
	return &item, nil
}

// ListItems returns every store item ordered by id.
func (r *SQLCatalogRepository) ListItems(ctx context.Context) ([]model.StoreItem, error) {
	items := []model.StoreItem{}
	if err := r.db.SelectContext(ctx, &items, `SELECT `+r.columns+` FROM store_item ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list store items: %w", err)
	}
	return items, nil
}

// CreateItem inserts a store item and sets its id.
func (r *SQLCatalogRepository) CreateItem(ctx context.Context, item *model.StoreItem) error {
	query := r.db.Rebind(`INSERT INTO store_item (name, price, stock, ` + quoteIdent(r.dialect, "limit") +
		`, item_id, item_type) VALUES (?, ?, ?, ?, ?, ?)`)
	args := []interface{}{item.Name, item.Price, item.Stock, item.Limit, item.ItemID, item.ItemType}

	if r.dialect == "postgres" {
		if err := r.db.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to create store item: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create store item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read store item id: %w", err)
	}
	item.ID = id
	return nil
}

// DecrementStock takes qty units in a single conditional update, so two
// buyers can never both take the last unit. Unlimited items are unchanged.
func (r *SQLCatalogRepository) DecrementStock(ctx context.Context, id, qty int64) error {
	query := r.db.Rebind(`UPDATE store_item
		SET stock = CASE WHEN stock = -1 THEN stock ELSE stock - ? END
		WHERE id = ? AND (stock = -1 OR stock >= ?)`)

	res, err := r.db.ExecContext(ctx, query, qty, id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n > 0 {
		return nil
	}

	// MySQL reports changed rows, so an unlimited item also lands here.
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Unlimited() {
		return nil
	}
	return ErrInsufficientStock
}

// RestoreStock gives back qty units. Unlimited items are left alone.
func (r *SQLCatalogRepository) RestoreStock(ctx context.Context, id, qty int64) error {
	query := r.db.Rebind(`UPDATE store_item SET stock = stock + ? WHERE id = ? AND stock <> -1`)

	if _, err := r.db.ExecContext(ctx, query, qty, id); err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

func (r *SQLCatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLCatalogRepository) Close() error {
	return r.db.Close()
}

// quoteIdent quotes a reserved word for the dialect.
func quoteIdent(dialect, name string) string {
	if dialect == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// Ensure SQLCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*SQLCatalogRepository)(nil)
