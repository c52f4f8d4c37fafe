package repository

import (
	"context"

	"arcstore-api/internal/model"
)

// CatalogRepository defines store_item data access methods.
type CatalogRepository interface {
	// GetItem returns a store item or ErrProductNotFound.
	GetItem(ctx context.Context, id int64) (*model.StoreItem, error)

	// ListItems returns every store item ordered by id.
	ListItems(ctx context.Context) ([]model.StoreItem, error)

	// DecrementStock takes qty units if the item is unlimited or has enough stock.
	DecrementStock(ctx context.Context, id, qty int64) error

	// RestoreStock gives back qty units taken by DecrementStock.
	RestoreStock(ctx context.Context, id, qty int64) error

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}

// GameRepository defines data access to the game server database.
// Writes go through a GameTx.
type GameRepository interface {
	// Begin starts a write transaction.
	Begin(ctx context.Context) (GameTx, error)

	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)

	// SearchUsers returns users whose name contains query.
	SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error)

	// VerifyPassword returns the user if name and password match.
	VerifyPassword(ctx context.Context, name, password string) (*model.User, error)

	// ListPendingPresents returns the live presents linked to a user.
	ListPendingPresents(ctx context.Context, userID, nowMillis int64) ([]model.Present, error)

	// ListBanners returns the user's course banners, shown and hidden.
	ListBanners(ctx context.Context, userID int64) ([]model.BannerItem, error)

	// ReapExpired runs a reap in its own transaction.
	ReapExpired(ctx context.Context, prefix string, nowMillis int64) (int64, error)

	// GetStats returns statistics about the game database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	Ping(ctx context.Context) error
	Close() error
}

// GameTx is one write transaction against the game database. It covers the
// ledger (user balance) and the mailbox (present tables).
type GameTx interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)

	// AdjustBalance adds delta to the user's ticket. The result may be negative.
	AdjustBalance(ctx context.Context, userID, delta int64) error

	// RenameUser returns ErrNameTaken on a collision.
	RenameUser(ctx context.Context, userID int64, name string) error

	// UpsertPresent creates the present or refreshes its expiry and description.
	UpsertPresent(ctx context.Context, presentID string, expireMillis int64, description string) error

	// SetPresentItems creates the lines or overwrites their amounts.
	SetPresentItems(ctx context.Context, presentID string, lines []model.PresentItem) error

	// LinkRecipient returns ErrDuplicateLink when the link already exists.
	LinkRecipient(ctx context.Context, userID int64, presentID string) error

	IsLinked(ctx context.Context, userID int64, presentID string) (bool, error)

	ListBanners(ctx context.Context, userID int64) ([]model.BannerItem, error)

	// SetBanner rewrites one user_item banner row to the given id and type.
	SetBanner(ctx context.Context, userID int64, from, to model.BannerItem) error

	// ReapExpired deletes presents whose description starts with prefix and
	// whose expiry is before nowMillis, together with their lines and links.
	ReapExpired(ctx context.Context, prefix string, nowMillis int64) (int64, error)

	// HasLivePendingOrder reports whether the user is linked to an unexpired
	// present whose description starts with prefix.
	HasLivePendingOrder(ctx context.Context, userID int64, prefix string, nowMillis int64) (bool, error)

	Commit() error
	Rollback() error
}

// EventRepository defines data access to the event database.
type EventRepository interface {
	// GetDraw returns the user's draw on date (YYYY-MM-DD), or nil.
	GetDraw(ctx context.Context, userID int64, date string) (*model.LotteryDraw, error)

	// ListPrizes returns every limited prize.
	ListPrizes(ctx context.Context) ([]model.LimitedPrize, error)

	// HasPrize reports whether the user has ever drawn the named prize.
	HasPrize(ctx context.Context, userID int64, prize string) (bool, error)

	// RecordDraw stores a draw. ErrAlreadyDrawn when one exists for the date.
	RecordDraw(ctx context.Context, draw *model.LotteryDraw) error

	// ClaimPrize marks a limited prize as won and records the draw atomically.
	// ErrPrizeClaimed when someone got there first.
	ClaimPrize(ctx context.Context, prizeID string, draw *model.LotteryDraw) error

	// ListDraws returns a user's draws, newest first.
	ListDraws(ctx context.Context, userID int64, limit int) ([]model.LotteryDraw, error)

	Ping(ctx context.Context) error
	Close() error
}
