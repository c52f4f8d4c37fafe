package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/idempotency"
	"arcstore-api/internal/lock"
	"arcstore-api/internal/metrics"
	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"

	"go.uber.org/zap"
)

// Present descriptions. The game client shows them verbatim and the purchase
// prefix identifies store orders for the reaper, so they must match the
// strings the site has always written.
const (
	PurchasePrefix = "商店购买："

	exchangeDebitDesc    = "残片兑换：请先支付虚实构想!"
	exchangeCreditDesc   = "残片兑换：请尽快领取兑换的残片！"
	bankruptPenaltyDesc  = "破产申请：你必须扣除残片后才能获取破产补助"
	bankruptCreditDesc   = "破产申请成功，请尽快领取！"
	giftDescriptionFmt   = "收到来自用户%s的赠送：%s"
	bankruptcyPenalty    = 1000
	catalogCacheKey      = "store:items"
	compensationDeadline = 10 * time.Second
)

// StoreConfig holds the tunables of StoreService.
type StoreConfig struct {
	OrderTTL       time.Duration
	AcquireTimeout time.Duration
	RenamePrice    int64
	GiftEnabled    bool
	CatalogTTL     time.Duration
}

// StoreService runs the store workflows: purchase, gift, fragment exchange,
// bankruptcy claim and rename.
//
// Each workflow holds the user's lock and one game transaction. The catalog
// may live in a different database, so a stock reservation is given back when
// the game transaction does not commit.
type StoreService struct {
	catalog repository.CatalogRepository
	game    repository.GameRepository
	locker  lock.Locker
	cache   cache.Cache
	cfg     StoreConfig
	log     *zap.Logger
	now     func() time.Time
}

// NewStoreService creates a new store service.
func NewStoreService(
	catalog repository.CatalogRepository,
	game repository.GameRepository,
	locker lock.Locker,
	c cache.Cache,
	cfg StoreConfig,
	log *zap.Logger,
) *StoreService {
	if cfg.OrderTTL == 0 {
		cfg.OrderTTL = 24 * time.Hour
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}
	if cfg.RenamePrice == 0 {
		cfg.RenamePrice = 648
	}
	if cfg.CatalogTTL == 0 {
		cfg.CatalogTTL = 30 * time.Second
	}

	return &StoreService{
		catalog: catalog,
		game:    game,
		locker:  locker,
		cache:   c,
		cfg:     cfg,
		log:     log.Named("store"),
		now:     time.Now,
	}
}

// GiftEnabled reports whether the gift workflow is switched on.
func (s *StoreService) GiftEnabled() bool {
	return s.cfg.GiftEnabled
}

// ListItems returns the catalog, served from cache when possible.
func (s *StoreService) ListItems(ctx context.Context) ([]model.StoreItem, error) {
	load := func() ([]byte, error) {
		items, err := s.catalog.ListItems(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	}

	var raw []byte
	var err error
	if s.cache != nil {
		raw, err = s.cache.GetOrSet(ctx, catalogCacheKey, s.cfg.CatalogTTL, load)
	} else {
		raw, err = load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list store items: %w", err)
	}

	var items []model.StoreItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode store items: %w", err)
	}
	return items, nil
}

// Purchase buys quantity units of a product for the user. The item is
// delivered through a present that expires after OrderTTL; a user can hold
// only one unclaimed purchase at a time.
func (s *StoreService) Purchase(ctx context.Context, userID, productID, quantity int64) (res *Result) {
	const op = "purchase"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	item, res := s.loadItem(ctx, op, userID, productID)
	if res != nil {
		return res
	}
	if res := checkQuantity(item, quantity); res != nil {
		return res
	}
	total, fits := item.Total(quantity)
	if !fits {
		return fail(CodeInsufficientBalance)
	}

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	balance, err := tx.GetBalance(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if balance < total {
		return fail(CodeInsufficientBalance)
	}

	now := s.now()
	reaped, err := tx.ReapExpired(ctx, PurchasePrefix, model.Millis(now))
	if err != nil {
		return s.fault(op, userID, err)
	}

	pending, err := tx.HasLivePendingOrder(ctx, userID, PurchasePrefix, model.Millis(now))
	if err != nil {
		return s.fault(op, userID, err)
	}
	if pending {
		return fail(CodePendingOrderExists)
	}

	orderID := idempotency.OrderID(userID, now)

	if res := s.reserveStock(ctx, op, unit, item, quantity); res != nil {
		return res
	}

	if err := tx.UpsertPresent(ctx, orderID, model.Millis(now.Add(s.cfg.OrderTTL)), PurchasePrefix+item.Name); err != nil {
		return s.fault(op, userID, err)
	}
	line := model.PresentItem{ItemID: item.ItemID, Type: item.ItemType, Amount: quantity}
	if err := tx.SetPresentItems(ctx, orderID, []model.PresentItem{line}); err != nil {
		return s.fault(op, userID, err)
	}
	if err := tx.LinkRecipient(ctx, userID, orderID); err != nil {
		return s.fault(op, userID, err)
	}
	if err := tx.AdjustBalance(ctx, userID, -total); err != nil {
		return s.fault(op, userID, err)
	}

	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}

	if reaped > 0 {
		metrics.ReapedPresentsTotal.WithLabelValues("request").Add(float64(reaped))
	}
	s.invalidateCatalog(ctx)

	s.log.Info("purchase completed",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int64("quantity", quantity),
		zap.Int64("total", total),
		zap.String("present_id", orderID))

	res = ok(fmt.Sprintf("purchased %d x %s", quantity, item.Name))
	res.TotalPrice = &total
	return res
}

// Gift sends quantity units of a product from the user to recipientName.
// It is switched off unless the gift feature flag is set.
func (s *StoreService) Gift(ctx context.Context, userID int64, recipientName string, productID, quantity int64) (res *Result) {
	const op = "gift"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	if !s.cfg.GiftEnabled {
		return fail(CodeFeatureDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	item, res := s.loadItem(ctx, op, userID, productID)
	if res != nil {
		return res
	}

	recipient, err := s.game.GetUserByName(ctx, recipientName)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return failf(CodeUserNotFound, "recipient not found")
		}
		return s.fault(op, userID, err)
	}
	if recipient.UserID == userID {
		return fail(CodeInvalidRecipient)
	}

	if res := checkQuantity(item, quantity); res != nil {
		return res
	}
	total, fits := item.Total(quantity)
	if !fits {
		return fail(CodeInsufficientBalance)
	}

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	sender, err := tx.GetUser(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if sender.Ticket < total {
		return fail(CodeInsufficientBalance)
	}

	presentID := idempotency.Gift(userID, recipient.UserID).String()

	linked, err := tx.IsLinked(ctx, recipient.UserID, presentID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if linked {
		return failf(CodeAlreadyPending, "the recipient has not claimed your previous gift yet")
	}

	if res := s.reserveStock(ctx, op, unit, item, quantity); res != nil {
		return res
	}

	now := s.now()
	description := fmt.Sprintf(giftDescriptionFmt, sender.Name, item.Name)
	if err := tx.UpsertPresent(ctx, presentID, model.Millis(now.Add(s.cfg.OrderTTL)), description); err != nil {
		return s.fault(op, userID, err)
	}
	line := model.PresentItem{ItemID: item.ItemID, Type: item.ItemType, Amount: quantity}
	if err := tx.SetPresentItems(ctx, presentID, []model.PresentItem{line}); err != nil {
		return s.fault(op, userID, err)
	}
	if err := tx.LinkRecipient(ctx, recipient.UserID, presentID); err != nil {
		return s.fault(op, userID, err)
	}
	if err := tx.AdjustBalance(ctx, userID, -total); err != nil {
		return s.fault(op, userID, err)
	}

	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}
	s.invalidateCatalog(ctx)

	s.log.Info("gift sent",
		zap.Int64("user_id", userID),
		zap.Int64("recipient_id", recipient.UserID),
		zap.Int64("product_id", productID),
		zap.Int64("quantity", quantity))

	res = ok(fmt.Sprintf("sent %d x %s to %s", quantity, item.Name, recipient.Name))
	res.TotalPrice = &total
	return res
}

// Exchange converts fragmentCount tickets into fragments. The pair of
// presents is keyed by user, so a retry before claiming reports AlreadyPending.
func (s *StoreService) Exchange(ctx context.Context, userID, fragmentCount int64) (res *Result) {
	const op = "exchange"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	if fragmentCount <= 0 {
		return fail(CodeInvalidQuantity)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	balance, err := tx.GetBalance(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if balance < fragmentCount {
		return fail(CodeInsufficientBalance)
	}

	debit, credit := idempotency.Pair(idempotency.KindExchange, userID)
	expire := model.Millis(s.now().Add(s.cfg.OrderTTL))

	res = s.enqueuePair(ctx, op, tx, userID, expire,
		pairHalf{debit, exchangeDebitDesc, model.Line(model.ItemMemory, -fragmentCount)},
		pairHalf{credit, exchangeCreditDesc, model.Line(model.ItemFragment, fragmentCount)},
		credit, debit)
	if res != nil {
		return res
	}

	if err := tx.AdjustBalance(ctx, userID, -fragmentCount); err != nil {
		return s.fault(op, userID, err)
	}
	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}

	s.log.Info("fragment exchange queued", zap.Int64("user_id", userID), zap.Int64("fragments", fragmentCount))
	return ok("exchange submitted, claim it in game soon")
}

// BankruptcyClaim lets a user with a negative balance reset it. The credit
// and the fragment penalty are both delivered through the mailbox.
func (s *StoreService) BankruptcyClaim(ctx context.Context, userID int64) (res *Result) {
	const op = "bankruptcy"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	balance, err := tx.GetBalance(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if balance >= 0 {
		return failf(CodeNotEligible, "bankruptcy requires a negative balance")
	}

	penalty, credit := idempotency.Pair(idempotency.KindBankruptcy, userID)
	expire := model.Millis(s.now().Add(s.cfg.OrderTTL))

	res = s.enqueuePair(ctx, op, tx, userID, expire,
		pairHalf{penalty, bankruptPenaltyDesc, model.Line(model.ItemFragment, -bankruptcyPenalty)},
		pairHalf{credit, bankruptCreditDesc, model.Line(model.ItemMemory, -balance)},
		penalty, credit)
	if res != nil {
		return res
	}

	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}

	s.log.Info("bankruptcy claim queued", zap.Int64("user_id", userID), zap.Int64("credit", -balance))
	return ok("bankruptcy approved, claim it in game soon")
}

// Rename changes the user's name for RenamePrice tickets.
func (s *StoreService) Rename(ctx context.Context, userID int64, newName string) (res *Result) {
	const op = "rename"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	if !validName(newName) {
		return failf(CodeInvalidName, "user name must be non-empty printable ASCII")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}
	if user.Ticket < s.cfg.RenamePrice {
		return fail(CodeInsufficientBalance)
	}
	if user.Name == newName {
		return failf(CodeInvalidName, "new user name must differ from the current one")
	}

	if err := tx.RenameUser(ctx, userID, newName); err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			return fail(CodeNameTaken)
		}
		return s.fault(op, userID, err)
	}
	if err := tx.AdjustBalance(ctx, userID, -s.cfg.RenamePrice); err != nil {
		return s.fault(op, userID, err)
	}
	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}

	s.log.Info("user renamed", zap.Int64("user_id", userID), zap.String("from", user.Name), zap.String("to", newName))
	price := s.cfg.RenamePrice
	res = ok("user name changed")
	res.TotalPrice = &price
	return res
}

// UpdateBanner shows the course banner bannerID and hides every other banner
// the user owns. An empty bannerID hides them all.
func (s *StoreService) UpdateBanner(ctx context.Context, userID int64, bannerID string) (res *Result) {
	const op = "banner"
	start := time.Now()
	defer func() { metrics.ObserveOperation(op, string(res.Code), start) }()

	selected := model.BannerID(bannerID)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	unit, res := s.begin(ctx, op, userID)
	if res != nil {
		return res
	}
	defer unit.close()
	tx := unit.tx

	banners, err := tx.ListBanners(ctx, userID)
	if err != nil {
		return s.fault(op, userID, err)
	}

	owned := selected == ""
	for _, b := range banners {
		if model.BannerID(b.ItemID) == selected {
			owned = true
		}
	}
	if !owned {
		return fail(CodeBannerNotFound)
	}

	for _, b := range banners {
		id := model.BannerID(b.ItemID)
		next := model.BannerItem{ItemID: "_" + id, Type: model.BannerHidden}
		if id == selected {
			next = model.BannerItem{ItemID: id, Type: model.BannerShown}
		}
		if err := tx.SetBanner(ctx, userID, b, next); err != nil {
			return s.fault(op, userID, err)
		}
	}
	if err := unit.commit(); err != nil {
		return s.fault(op, userID, err)
	}

	s.log.Info("banner updated", zap.Int64("user_id", userID), zap.String("banner_id", selected))
	return ok("banner settings saved")
}

// loadItem fetches the product being bought or gifted.
func (s *StoreService) loadItem(ctx context.Context, op string, userID, productID int64) (*model.StoreItem, *Result) {
	item, err := s.catalog.GetItem(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, fail(CodeProductNotFound)
		}
		return nil, s.fault(op, userID, err)
	}
	return item, nil
}

// checkQuantity validates quantity against the item's stock and limit.
func checkQuantity(item *model.StoreItem, quantity int64) *Result {
	switch {
	case quantity <= 0:
		return fail(CodeInvalidQuantity)
	case !item.HasStock(quantity):
		return fail(CodeInsufficientStock)
	case item.ExceedsLimit(quantity):
		return failf(CodeLimitExceeded, "at most "+strconv.FormatInt(*item.Limit, 10)+" per order")
	}
	return nil
}

// reserveStock takes the stock and registers its compensation on unit.
func (s *StoreService) reserveStock(ctx context.Context, op string, unit *unitOfWork, item *model.StoreItem, quantity int64) *Result {
	if err := s.catalog.DecrementStock(ctx, item.ID, quantity); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return fail(CodeInsufficientStock)
		case errors.Is(err, repository.ErrProductNotFound):
			return fail(CodeProductNotFound)
		}
		return s.fault(op, unit.userID, err)
	}

	unit.compensate = func() {
		// The request context may be done by now.
		ctx, cancel := context.WithTimeout(context.Background(), compensationDeadline)
		defer cancel()

		if err := s.catalog.RestoreStock(ctx, item.ID, quantity); err != nil {
			metrics.StockCompensations.WithLabelValues("failed").Inc()
			s.log.Error("failed to restore stock",
				zap.String("operation", op),
				zap.Int64("product_id", item.ID),
				zap.Int64("quantity", quantity),
				zap.Error(err))
			return
		}
		metrics.StockCompensations.WithLabelValues("restored").Inc()
		s.log.Warn("stock restored after failed transaction",
			zap.String("operation", op),
			zap.Int64("product_id", item.ID),
			zap.Int64("quantity", quantity))
	}
	return nil
}

type pairHalf struct {
	key         idempotency.Key
	description string
	line        model.PresentItem
}

// enqueuePair upserts both presents of a paired workflow and links them in
// linkOrder. A link that already exists is tolerated; only when both were
// already linked is the request a retry, reported as AlreadyPending.
func (s *StoreService) enqueuePair(
	ctx context.Context,
	op string,
	tx repository.GameTx,
	userID, expire int64,
	first, second pairHalf,
	linkOrder ...idempotency.Key,
) *Result {
	for _, half := range []pairHalf{first, second} {
		id := half.key.String()
		if err := tx.UpsertPresent(ctx, id, expire, half.description); err != nil {
			return s.fault(op, userID, err)
		}
		if err := tx.SetPresentItems(ctx, id, []model.PresentItem{half.line}); err != nil {
			return s.fault(op, userID, err)
		}
	}

	linked := 0
	for _, key := range linkOrder {
		err := tx.LinkRecipient(ctx, userID, key.String())
		switch {
		case err == nil:
			linked++
		case errors.Is(err, repository.ErrDuplicateLink):
		default:
			return s.fault(op, userID, err)
		}
	}
	if linked == 0 {
		return fail(CodeAlreadyPending)
	}
	return nil
}

// unitOfWork is a held user lock plus an open game transaction.
type unitOfWork struct {
	userID     int64
	tx         repository.GameTx
	release    func()
	committed  bool
	compensate func()
}

func (u *unitOfWork) commit() error {
	if err := u.tx.Commit(); err != nil {
		return err
	}
	u.committed = true
	return nil
}

// close rolls back an uncommitted transaction, undoes the stock reservation
// and releases the lock.
func (u *unitOfWork) close() {
	if !u.committed {
		u.tx.Rollback()
		if u.compensate != nil {
			u.compensate()
		}
	}
	u.release()
}

// begin takes the user's lock and opens a game transaction, both bounded by ctx.
func (s *StoreService) begin(ctx context.Context, op string, userID int64) (*unitOfWork, *Result) {
	release, err := s.locker.Acquire(ctx, userLockKey(userID))
	if err != nil {
		return nil, s.fault(op, userID, err)
	}

	tx, err := s.game.Begin(ctx)
	if err != nil {
		release()
		return nil, s.fault(op, userID, err)
	}

	return &unitOfWork{userID: userID, tx: tx, release: release}, nil
}

// fault converts an unexpected error into a Result and logs it.
func (s *StoreService) fault(op string, userID int64, err error) *Result {
	fields := []zap.Field{zap.String("operation", op), zap.Int64("user_id", userID), zap.Error(err)}

	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return fail(CodeUserNotFound)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicateLink):
		s.log.Warn("unexpected uniqueness conflict", fields...)
		return fail(CodeOperationConflict)
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("store acquisition timed out", fields...)
		return fail(CodeStoreUnavailable)
	default:
		s.log.Error("store operation failed", fields...)
		return fail(CodeStoreUnavailable)
	}
}

func (s *StoreService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.log.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

func userLockKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// validName accepts non-empty printable ASCII.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}
