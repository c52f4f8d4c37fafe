package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/idempotency"
	"arcstore-api/internal/lock"
	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storeEnv struct {
	catalog *repository.SQLCatalogRepository
	game    *repository.SQLiteGameRepository
	cache   *cache.MemoryCache
	locker  *lock.MemoryLocker
	svc     *StoreService
}

func newStoreEnv(t *testing.T, cfg StoreConfig) *storeEnv {
	t.Helper()
	dir := t.TempDir()

	catalog, err := repository.NewCatalogRepository("sqlite", filepath.Join(dir, "user.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	game, err := repository.NewSQLiteGameRepository(filepath.Join(dir, "game.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { game.Close() })

	c := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { c.Close() })

	env := &storeEnv{catalog: catalog, game: game, cache: c, locker: lock.NewMemoryLocker()}
	env.svc = NewStoreService(catalog, game, env.locker, c, cfg, zap.NewNop())
	return env
}

func (e *storeEnv) addUser(t *testing.T, name string, ticket int64) int64 {
	t.Helper()
	res, err := e.game.DB().Exec(`INSERT INTO user (name, password, ticket) VALUES (?, '', ?)`, name, ticket)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func (e *storeEnv) addItem(t *testing.T, price, stock int64, limit *int64) *model.StoreItem {
	t.Helper()
	item := &model.StoreItem{Name: "Core", Price: price, Stock: stock, Limit: limit, ItemID: "core_generic", ItemType: "core"}
	require.NoError(t, e.catalog.CreateItem(context.Background(), item))
	return item
}

func (e *storeEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	user, err := e.game.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Ticket
}

func (e *storeEnv) stock(t *testing.T, itemID int64) int64 {
	t.Helper()
	item, err := e.catalog.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return item.Stock
}

func (e *storeEnv) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, e.game.DB().Get(&n, query, args...))
	return n
}

func (e *storeEnv) presentItems(t *testing.T, presentID string) []model.PresentItem {
	t.Helper()
	var items []model.PresentItem
	require.NoError(t, e.game.DB().Select(&items,
		`SELECT present_id, item_id, type, amount FROM present_item WHERE present_id = ?`, presentID))
	return items
}

func int64Ptr(v int64) *int64 { return &v }

func TestPurchase_ConcreteScenario(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 100)
	item := env.addItem(t, 10, 3, int64Ptr(2))

	res := env.svc.Purchase(ctx, uid, item.ID, 2)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.TotalPrice)
	assert.Equal(t, int64(20), *res.TotalPrice)
	assert.Equal(t, int64(1), env.stock(t, item.ID))
	assert.Equal(t, int64(80), env.balance(t, uid))

	presents, err := env.game.ListPendingPresents(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, presents, 1)
	assert.Equal(t, PurchasePrefix+"Core", presents[0].Description)
	require.Len(t, presents[0].Items, 1)
	assert.Equal(t, "core_generic", presents[0].Items[0].ItemID)
	assert.Equal(t, int64(2), presents[0].Items[0].Amount)
	assert.InDelta(t, time.Now().Add(24*time.Hour).UnixMilli(), presents[0].ExpireTS, float64(time.Minute.Milliseconds()))

	res = env.svc.Purchase(ctx, uid, item.ID, 1)
	assert.False(t, res.Success)
	assert.Equal(t, CodePendingOrderExists, res.Code)
	assert.Equal(t, int64(1), env.stock(t, item.ID))
	assert.Equal(t, int64(80), env.balance(t, uid))
}

func TestPurchase_Validation(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 15)
	limited := env.addItem(t, 10, 3, int64Ptr(2))
	empty := env.addItem(t, 10, 0, nil)

	tests := []struct {
		name      string
		userID    int64
		productID int64
		quantity  int64
		want      Code
	}{
		{"unknown product", uid, 404, 1, CodeProductNotFound},
		{"zero quantity", uid, limited.ID, 0, CodeInvalidQuantity},
		{"negative quantity", uid, limited.ID, -1, CodeInvalidQuantity},
		{"out of stock", uid, empty.ID, 1, CodeInsufficientStock},
		{"more than stock", uid, limited.ID, 4, CodeInsufficientStock},
		{"over limit", uid, limited.ID, 3, CodeLimitExceeded},
		{"too expensive", uid, limited.ID, 2, CodeInsufficientBalance},
		{"unknown user", 9999, limited.ID, 1, CodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.svc.Purchase(ctx, tt.userID, tt.productID, tt.quantity)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Code)
			assert.NotEmpty(t, res.Message)
		})
	}

	assert.Equal(t, int64(3), env.stock(t, limited.ID))
	assert.Equal(t, int64(15), env.balance(t, uid))
}

func TestPurchase_UnlimitedStock(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	uid := env.addUser(t, "alice", 1000)
	item := env.addItem(t, 1, model.UnlimitedStock, nil)

	res := env.svc.Purchase(context.Background(), uid, item.ID, 500)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.UnlimitedStock, env.stock(t, item.ID))
	assert.Equal(t, int64(500), env.balance(t, uid))
}

func TestPurchase_HugeQuantityIsRejected(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 100)
	item := env.addItem(t, 10, model.UnlimitedStock, nil)

	// 10 * quantity wraps past math.MaxInt64.
	res := env.svc.Purchase(ctx, uid, item.ID, math.MaxInt64/10+1)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInsufficientBalance, res.Code)
	assert.Nil(t, res.TotalPrice)

	assert.Equal(t, int64(100), env.balance(t, uid))
	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM present`))

	res = env.svc.Purchase(ctx, uid, item.ID, 1)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(90), env.balance(t, uid))
}

func TestGift_HugeQuantityIsRejected(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{GiftEnabled: true})
	ctx := context.Background()
	alice := env.addUser(t, "alice", 100)
	env.addUser(t, "bob", 0)
	item := env.addItem(t, 10, model.UnlimitedStock, nil)

	res := env.svc.Gift(ctx, alice, "bob", item.ID, math.MaxInt64/10+1)
	assert.Equal(t, CodeInsufficientBalance, res.Code)
	assert.Equal(t, int64(100), env.balance(t, alice))
	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM user_present`))
}

// faultyGame fails the first call to the named GameTx step.
type faultyGame struct {
	repository.GameRepository
	failAt string
}

func (g *faultyGame) Begin(ctx context.Context) (repository.GameTx, error) {
	tx, err := g.GameRepository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{GameTx: tx, failAt: g.failAt}, nil
}

type faultyTx struct {
	repository.GameTx
	failAt string
}

var errInjected = errors.New("injected failure")

func (t *faultyTx) fail(step string) error {
	if t.failAt == step {
		return errInjected
	}
	return nil
}

func (t *faultyTx) UpsertPresent(ctx context.Context, id string, expire int64, desc string) error {
	if err := t.fail("upsert"); err != nil {
		return err
	}
	return t.GameTx.UpsertPresent(ctx, id, expire, desc)
}

func (t *faultyTx) SetPresentItems(ctx context.Context, id string, lines []model.PresentItem) error {
	if err := t.fail("items"); err != nil {
		return err
	}
	return t.GameTx.SetPresentItems(ctx, id, lines)
}

func (t *faultyTx) LinkRecipient(ctx context.Context, userID int64, id string) error {
	if err := t.fail("link"); err != nil {
		return err
	}
	if t.failAt == "link-conflict" {
		return fmt.Errorf("failed to link present %s: %w", id, repository.ErrConflict)
	}
	return t.GameTx.LinkRecipient(ctx, userID, id)
}

func (t *faultyTx) AdjustBalance(ctx context.Context, userID, delta int64) error {
	if err := t.fail("debit"); err != nil {
		return err
	}
	return t.GameTx.AdjustBalance(ctx, userID, delta)
}

func (t *faultyTx) Commit() error {
	if err := t.fail("commit"); err != nil {
		t.GameTx.Rollback()
		return err
	}
	return t.GameTx.Commit()
}

func TestPurchase_FailureAfterStockReservationLeavesNoDrift(t *testing.T) {
	steps := []struct {
		failAt string
		want   Code
	}{
		{"upsert", CodeStoreUnavailable},
		{"items", CodeStoreUnavailable},
		{"link", CodeStoreUnavailable},
		{"link-conflict", CodeOperationConflict},
		{"debit", CodeStoreUnavailable},
		{"commit", CodeStoreUnavailable},
	}

	for _, step := range steps {
		t.Run(step.failAt, func(t *testing.T) {
			env := newStoreEnv(t, StoreConfig{})
			uid := env.addUser(t, "alice", 100)
			item := env.addItem(t, 10, 3, nil)

			svc := NewStoreService(env.catalog, &faultyGame{GameRepository: env.game, failAt: step.failAt},
				env.locker, env.cache, StoreConfig{}, zap.NewNop())

			res := svc.Purchase(context.Background(), uid, item.ID, 2)
			assert.False(t, res.Success)
			assert.Equal(t, step.want, res.Code)

			assert.Equal(t, int64(3), env.stock(t, item.ID), "stock restored")
			assert.Equal(t, int64(100), env.balance(t, uid), "balance untouched")
			assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM present`))
			assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM user_present`))
		})
	}
}

func TestPurchase_ConcurrentSameUserSingleStock(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	uid := env.addUser(t, "alice", 1000)
	item := env.addItem(t, 10, 1, nil)

	const n = 8
	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.svc.Purchase(context.Background(), uid, item.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
			continue
		}
		assert.Contains(t, []Code{CodeInsufficientStock, CodePendingOrderExists}, res.Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(0), env.stock(t, item.ID))
	assert.Equal(t, int64(990), env.balance(t, uid))
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM user_present`))
}

func TestPurchase_ConcurrentUsersSingleStock(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	item := env.addItem(t, 10, 1, nil)

	const n = 8
	users := make([]int64, n)
	for i := range users {
		users[i] = env.addUser(t, fmt.Sprintf("user%d", i), 100)
	}

	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.svc.Purchase(context.Background(), users[i], item.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
			continue
		}
		assert.Equal(t, CodeInsufficientStock, res.Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(0), env.stock(t, item.ID))
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM user_present`))
}

func TestPurchase_ExpiredOrderIsReaped(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 100)
	item := env.addItem(t, 10, 5, nil)

	require.True(t, env.svc.Purchase(ctx, uid, item.ID, 1).Success)

	later := time.Now().Add(25 * time.Hour)
	env.svc.now = func() time.Time { return later }

	res := env.svc.Purchase(ctx, uid, item.ID, 1)
	require.True(t, res.Success, res.Message)

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM present`), "expired order removed")
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM present_item`))
	assert.Equal(t, int64(80), env.balance(t, uid))
}

func TestPurchase_LockTimeout(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{AcquireTimeout: 50 * time.Millisecond})
	uid := env.addUser(t, "alice", 100)
	item := env.addItem(t, 10, 5, nil)

	release, err := env.locker.Acquire(context.Background(), userLockKey(uid))
	require.NoError(t, err)
	defer release()

	res := env.svc.Purchase(context.Background(), uid, item.ID, 1)
	assert.Equal(t, CodeStoreUnavailable, res.Code)
	assert.Equal(t, int64(5), env.stock(t, item.ID))
	assert.Equal(t, int64(100), env.balance(t, uid))
}

func TestListItems_CachedAndInvalidated(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 100)
	item := env.addItem(t, 10, 5, nil)

	items, err := env.svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].Stock)

	_, err = env.cache.Get(ctx, catalogCacheKey)
	require.NoError(t, err, "listing is cached")

	require.True(t, env.svc.Purchase(ctx, uid, item.ID, 2).Success)

	items, err = env.svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), items[0].Stock, "purchase invalidates the cached listing")
}

func TestExchange_IdempotentRetry(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 500)

	res := env.svc.Exchange(ctx, uid, 100)
	require.True(t, res.Success, res.Message)

	res = env.svc.Exchange(ctx, uid, 100)
	assert.False(t, res.Success)
	assert.Equal(t, CodeAlreadyPending, res.Code)

	assert.Equal(t, int64(400), env.balance(t, uid), "debited exactly once")

	debit, credit := idempotency.Pair(idempotency.KindExchange, uid)
	assert.Equal(t, []model.PresentItem{{PresentID: debit.String(), ItemID: "memory", Type: "memory", Amount: -100}},
		env.presentItems(t, debit.String()))
	assert.Equal(t, []model.PresentItem{{PresentID: credit.String(), ItemID: "fragment", Type: "fragment", Amount: 100}},
		env.presentItems(t, credit.String()))
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM user_present WHERE user_id = ?`, uid))
}

func TestExchange_Validation(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 50)

	assert.Equal(t, CodeInvalidQuantity, env.svc.Exchange(ctx, uid, 0).Code)
	assert.Equal(t, CodeInsufficientBalance, env.svc.Exchange(ctx, uid, 51).Code)
	assert.Equal(t, CodeUserNotFound, env.svc.Exchange(ctx, 9999, 1).Code)
	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM present`))
}

func TestExchange_PartialLinkIsCompleted(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	uid := env.addUser(t, "alice", 500)

	// The credit half was claimed-and-relinked or left over from an older request.
	_, credit := idempotency.Pair(idempotency.KindExchange, uid)
	_, err := env.game.DB().Exec(`INSERT INTO user_present (user_id, present_id) VALUES (?, ?)`, uid, credit.String())
	require.NoError(t, err)

	res := env.svc.Exchange(ctx, uid, 30)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM user_present WHERE user_id = ?`, uid))
	assert.Equal(t, int64(30), env.presentItems(t, credit.String())[0].Amount)
}

func TestBankruptcyClaim(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()

	solvent := env.addUser(t, "solvent", 0)
	res := env.svc.BankruptcyClaim(ctx, solvent)
	assert.Equal(t, CodeNotEligible, res.Code)

	broke := env.addUser(t, "broke", -500)
	res = env.svc.BankruptcyClaim(ctx, broke)
	require.True(t, res.Success, res.Message)

	penalty, credit := idempotency.Pair(idempotency.KindBankruptcy, broke)
	assert.Equal(t, []model.PresentItem{{PresentID: penalty.String(), ItemID: "fragment", Type: "fragment", Amount: -1000}},
		env.presentItems(t, penalty.String()))
	assert.Equal(t, []model.PresentItem{{PresentID: credit.String(), ItemID: "memory", Type: "memory", Amount: 500}},
		env.presentItems(t, credit.String()))
	assert.Equal(t, int64(-500), env.balance(t, broke), "credit is delivered through the mailbox")

	res = env.svc.BankruptcyClaim(ctx, broke)
	assert.Equal(t, CodeAlreadyPending, res.Code)
}

func TestGift_DisabledByDefault(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	uid := env.addUser(t, "alice", 100)
	env.addUser(t, "bob", 0)
	item := env.addItem(t, 10, 5, nil)

	res := env.svc.Gift(context.Background(), uid, "bob", item.ID, 1)
	assert.False(t, res.Success)
	assert.Equal(t, CodeFeatureDisabled, res.Code)
	assert.Equal(t, "feature disabled", res.Message)
	assert.Equal(t, int64(5), env.stock(t, item.ID))
	assert.Equal(t, int64(100), env.balance(t, uid))
}

func TestGift_Enabled(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{GiftEnabled: true})
	ctx := context.Background()
	alice := env.addUser(t, "alice", 100)
	bob := env.addUser(t, "bob", 0)
	item := env.addItem(t, 10, 5, nil)

	assert.Equal(t, CodeUserNotFound, env.svc.Gift(ctx, alice, "nobody", item.ID, 1).Code)
	assert.Equal(t, CodeInvalidRecipient, env.svc.Gift(ctx, alice, "alice", item.ID, 1).Code)
	assert.Equal(t, CodeProductNotFound, env.svc.Gift(ctx, alice, "bob", 404, 1).Code)

	res := env.svc.Gift(ctx, alice, "bob", item.ID, 2)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(20), *res.TotalPrice)
	assert.Equal(t, int64(80), env.balance(t, alice))
	assert.Equal(t, int64(3), env.stock(t, item.ID))

	presents, err := env.game.ListPendingPresents(ctx, bob, 0)
	require.NoError(t, err)
	require.Len(t, presents, 1)
	assert.Equal(t, idempotency.Gift(alice, bob).String(), presents[0].PresentID)
	assert.Equal(t, "收到来自用户alice的赠送：Core", presents[0].Description)

	res = env.svc.Gift(ctx, alice, "bob", item.ID, 1)
	assert.Equal(t, CodeAlreadyPending, res.Code)
	assert.Equal(t, int64(80), env.balance(t, alice))
	assert.Equal(t, int64(3), env.stock(t, item.ID))
}

func TestRename(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	alice := env.addUser(t, "alice", 1000)
	env.addUser(t, "bob", 0)
	poor := env.addUser(t, "poor", 10)

	assert.Equal(t, CodeInvalidName, env.svc.Rename(ctx, alice, "").Code)
	assert.Equal(t, CodeInvalidName, env.svc.Rename(ctx, alice, "名字").Code)
	assert.Equal(t, CodeInvalidName, env.svc.Rename(ctx, alice, "alice").Code)
	assert.Equal(t, CodeNameTaken, env.svc.Rename(ctx, alice, "bob").Code)
	assert.Equal(t, CodeInsufficientBalance, env.svc.Rename(ctx, poor, "rich").Code)
	assert.Equal(t, int64(1000), env.balance(t, alice))

	res := env.svc.Rename(ctx, alice, "carol")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(352), env.balance(t, alice))

	user, err := env.game.GetUserByName(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, alice, user.UserID)
}

func (e *storeEnv) addBanner(t *testing.T, userID int64, itemID, typ string) {
	t.Helper()
	_, err := e.game.DB().Exec(`INSERT INTO user_item (user_id, item_id, type, amount) VALUES (?, ?, ?, 1)`, userID, itemID, typ)
	require.NoError(t, err)
}

func (e *storeEnv) banners(t *testing.T, userID int64) []model.BannerItem {
	t.Helper()
	banners, err := e.game.ListBanners(context.Background(), userID)
	require.NoError(t, err)
	return banners
}

func TestUpdateBanner(t *testing.T) {
	env := newStoreEnv(t, StoreConfig{})
	ctx := context.Background()
	alice := env.addUser(t, "alice", 0)
	bob := env.addUser(t, "bob", 0)

	env.addBanner(t, alice, "course_banner_1", model.BannerShown)
	env.addBanner(t, alice, "_course_banner_2", model.BannerHidden)
	env.addBanner(t, alice, "_course_banner_3", model.BannerHidden)
	env.addBanner(t, bob, "course_banner_9", model.BannerShown)

	res := env.svc.UpdateBanner(ctx, alice, "_course_banner_2")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []model.BannerItem{
		{ItemID: "_course_banner_1", Type: model.BannerHidden},
		{ItemID: "_course_banner_3", Type: model.BannerHidden},
		{ItemID: "course_banner_2", Type: model.BannerShown},
	}, env.banners(t, alice))

	// Selecting the shown banner again changes nothing.
	require.True(t, env.svc.UpdateBanner(ctx, alice, "course_banner_2").Success)
	assert.Len(t, env.banners(t, alice), 3)

	// A banner owned by someone else is refused and nothing is written.
	res = env.svc.UpdateBanner(ctx, alice, "course_banner_9")
	assert.False(t, res.Success)
	assert.Equal(t, CodeBannerNotFound, res.Code)
	assert.Contains(t, env.banners(t, alice), model.BannerItem{ItemID: "course_banner_2", Type: model.BannerShown})

	require.True(t, env.svc.UpdateBanner(ctx, alice, "").Success)
	for _, b := range env.banners(t, alice) {
		assert.False(t, b.Active(), b.ItemID)
	}

	assert.Equal(t, []model.BannerItem{{ItemID: "course_banner_9", Type: model.BannerShown}}, env.banners(t, bob))
}
