package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
	"pos/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// インメモリのTxRepos偽物。
// WithinTxをミューテックスで直列化して、DBの行ロック相当の振る舞いを再現する。
// fnがエラーを返したらスナップショットへ巻き戻す（ロールバック相当）。
// =====================

type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	products  map[int64]model.Product
	inventory map[int64]model.InventoryRecord // key: productID
	movements []model.StockMovement
	orders    map[int64]model.PurchaseOrder
	items     map[int64]model.PurchaseOrderItem

	//Appendを失敗させてロールバックを確認するためのスイッチ
	failAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:    1,
		products:  map[int64]model.Product{},
		inventory: map[int64]model.InventoryRecord{},
		orders:    map[int64]model.PurchaseOrder{},
		items:     map[int64]model.PurchaseOrderItem{},
	}
}

func (s *fakeStore) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()
	cp.nextID = s.nextID
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.inventory {
		cp.inventory[k] = v
	}
	cp.movements = append([]model.StockMovement(nil), s.movements...)
	for k, v := range s.orders {
		cp.orders[k] = v
	}
	for k, v := range s.items {
		cp.items[k] = v
	}
	return cp
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.nextID = snap.nextID
	s.products = snap.products
	s.inventory = snap.inventory
	s.movements = snap.movements
	s.orders = snap.orders
	s.items = snap.items
}

type fakeTxManager struct {
	store *fakeStore
}

func (tm *fakeTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tm.store.mu.Lock()
	defer tm.store.mu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(&fakeRepos{store: tm.store}); err != nil {
		tm.store.restore(snap)
		return err
	}
	return nil
}

type fakeRepos struct {
	store *fakeStore
}

func (r *fakeRepos) Products() repo.ProductRepository             { return &fakeProductRepo{r.store} }
func (r *fakeRepos) Inventory() repo.InventoryRepository          { return &fakeInventoryRepo{r.store} }
func (r *fakeRepos) Movements() repo.MovementRepository           { return &fakeMovementRepo{r.store} }
func (r *fakeRepos) PurchaseOrders() repo.PurchaseOrderRepository { return &fakePORepo{r.store} }

type fakeProductRepo struct{ s *fakeStore }

func (f *fakeProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := f.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = f.s.allocID()
	f.s.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) UpdateCostPrice(ctx context.Context, productID int64, costPrice int64) error {
	p, ok := f.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.CostPrice = costPrice
	f.s.products[productID] = p
	return nil
}

type fakeInventoryRepo struct{ s *fakeStore }

func (f *fakeInventoryRepo) Get(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	rec, ok := f.s.inventory[productID]
	if !ok {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	return rec, nil
}

func (f *fakeInventoryRepo) GetForUpdate(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	return f.Get(ctx, productID)
}

func (f *fakeInventoryRepo) Create(ctx context.Context, rec model.InventoryRecord) error {
	rec.ID = f.s.allocID()
	f.s.inventory[rec.ProductID] = rec
	return nil
}

func (f *fakeInventoryRepo) ApplyDelta(ctx context.Context, productID int64, currentDelta int64, reservedDelta int64) error {
	rec, ok := f.s.inventory[productID]
	if !ok {
		return repo.ErrNotFound
	}
	rec.CurrentStock += currentDelta
	rec.ReservedStock += reservedDelta
	rec.AvailableStock = rec.CurrentStock - rec.ReservedStock
	f.s.inventory[productID] = rec
	return nil
}

func (f *fakeInventoryRepo) ApplyStockTake(ctx context.Context, productID int64, actualCount int64) error {
	rec, ok := f.s.inventory[productID]
	if !ok {
		return repo.ErrNotFound
	}
	rec.CurrentStock = actualCount
	rec.AvailableStock = rec.CurrentStock - rec.ReservedStock
	rec.StockTakeCount++
	f.s.inventory[productID] = rec
	return nil
}

func (f *fakeInventoryRepo) ListBelowMinimum(ctx context.Context, limit int, offset int) ([]model.InventoryRecord, error) {
	var out []model.InventoryRecord
	for _, rec := range f.s.inventory {
		if rec.AvailableStock <= rec.MinimumStock {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeMovementRepo struct{ s *fakeStore }

func (f *fakeMovementRepo) Append(ctx context.Context, m model.StockMovement) error {
	if f.s.failAppend {
		return errors.New("append failed")
	}
	m.ID = f.s.allocID()
	f.s.movements = append(f.s.movements, m)
	return nil
}

func (f *fakeMovementRepo) ListByProduct(ctx context.Context, productID int64, filter repo.MovementFilter) ([]model.StockMovement, error) {
	var out []model.StockMovement
	for _, m := range f.s.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePORepo struct{ s *fakeStore }

func (f *fakePORepo) FindByID(ctx context.Context, orderID int64) (model.PurchaseOrder, error) {
	o, ok := f.s.orders[orderID]
	if !ok {
		return model.PurchaseOrder{}, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakePORepo) FindItemByID(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error) {
	it, ok := f.s.items[itemID]
	if !ok {
		return model.PurchaseOrderItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (f *fakePORepo) FindItemByIDForUpdate(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error) {
	return f.FindItemByID(ctx, itemID)
}

func (f *fakePORepo) ListItemsByOrderID(ctx context.Context, orderID int64) ([]model.PurchaseOrderItem, error) {
	var out []model.PurchaseOrderItem
	for _, it := range f.s.items {
		if it.PurchaseOrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakePORepo) Create(ctx context.Context, order model.PurchaseOrder, items []model.PurchaseOrderItem) (int64, error) {
	order.ID = f.s.allocID()
	f.s.orders[order.ID] = order
	for _, it := range items {
		it.ID = f.s.allocID()
		it.PurchaseOrderID = order.ID
		f.s.items[it.ID] = it
	}
	return order.ID, nil
}

func (f *fakePORepo) AddReceivedQty(ctx context.Context, itemID int64, qty int64) error {
	it, ok := f.s.items[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.ReceivedQty += qty
	f.s.items[itemID] = it
	return nil
}

func (f *fakePORepo) UpdateStatus(ctx context.Context, orderID int64, status model.PurchaseOrderStatus) error {
	o, ok := f.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	f.s.orders[orderID] = o
	return nil
}

// =====================
// helpers
// =====================

func newStockUsecase(store *fakeStore) *usecase.StockUsecase {
	return usecase.NewStockUsecase(&fakeTxManager{store: store}, zap.NewNop())
}

func seedProduct(store *fakeStore, minimum int64) int64 {
	id := store.allocID()
	store.products[id] = model.Product{ID: id, SKU: "SKU-1", Name: "coffee", IsActive: true}
	store.inventory[id] = model.InventoryRecord{ID: store.allocID(), ProductID: id, MinimumStock: minimum}
	return id
}

// available == current - reserved が常に成り立つことの確認
func assertCounterInvariant(t *testing.T, store *fakeStore, productID int64) {
	t.Helper()
	rec := store.inventory[productID]
	assert.Equal(t, rec.CurrentStock-rec.ReservedStock, rec.AvailableStock)
	assert.GreaterOrEqual(t, rec.ReservedStock, int64(0))
}

// =====================
// Receive
// =====================

func TestReceiveStock_RejectsNonPositiveQuantity(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	for _, qty := range []int64{0, -5} {
		_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: qty})
		assert.ErrorIs(t, err, usecase.ErrValidation)
	}
	assert.Empty(t, store.movements)
}

func TestReceiveStock_NotFound(t *testing.T) {
	store := newFakeStore()
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: 99, Quantity: 10})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestReceiveStock_IncrementsCurrentAndAvailable(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	out, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 50})
	require.NoError(t, err)

	assert.Equal(t, int64(50), out.CurrentStock)
	assert.Equal(t, int64(50), out.AvailableStock)
	assert.Equal(t, int64(0), out.ReservedStock)
	assert.Equal(t, int64(0), out.PreviousStock)
	assert.Equal(t, int64(50), out.NewStock)
	assertCounterInvariant(t, store, pid)

	require.Len(t, store.movements, 1)
	m := store.movements[0]
	assert.Equal(t, model.MovementReceipt, m.MovementType)
	assert.Equal(t, int64(50), m.QuantityChange)
}

func TestReceiveStock_UpdatesCostPriceWhenGiven(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10, UnitCost: 700})
	require.NoError(t, err)
	assert.Equal(t, int64(700), store.products[pid].CostPrice)

	//unit_cost=0なら原価は触らない
	_, err = uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(700), store.products[pid].CostPrice)
}

func TestReceiveStock_SupplierBecomesReference(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	supplier := int64(42)
	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 5, SupplierID: &supplier})
	require.NoError(t, err)

	require.Len(t, store.movements, 1)
	require.NotNil(t, store.movements[0].ReferenceID)
	assert.Equal(t, supplier, *store.movements[0].ReferenceID)
	assert.Equal(t, "supplier", store.movements[0].ReferenceType)
}

// =====================
// Adjust
// =====================

func TestAdjustStock_RoundTripRestoresStock(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10})
	require.NoError(t, err)

	out, err := uc.AdjustStock(context.Background(), 1, usecase.AdjustStockInput{ProductID: pid, Direction: "subtract", Quantity: 10, Reason: "breakage"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.CurrentStock)

	//履歴は+10と-10の2件で、前後スナップショットが繋がる
	require.Len(t, store.movements, 2)
	assert.Equal(t, int64(10), store.movements[0].QuantityChange)
	assert.Equal(t, int64(0), store.movements[0].PreviousStock)
	assert.Equal(t, int64(10), store.movements[0].NewStock)
	assert.Equal(t, int64(-10), store.movements[1].QuantityChange)
	assert.Equal(t, int64(10), store.movements[1].PreviousStock)
	assert.Equal(t, int64(0), store.movements[1].NewStock)
	assertCounterInvariant(t, store, pid)
}

func TestAdjustStock_RejectsNegativeResult(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.AdjustStock(context.Background(), 1, usecase.AdjustStockInput{ProductID: pid, Direction: "subtract", Quantity: 1, Reason: "oops"})
	assert.ErrorIs(t, err, usecase.ErrInvalidAdjustment)
	assert.Empty(t, store.movements)
}

func TestAdjustStock_RejectsDropBelowReserved(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10})
	require.NoError(t, err)
	_, err = uc.ReserveStock(context.Background(), 1, pid, 8, "")
	require.NoError(t, err)

	_, err = uc.AdjustStock(context.Background(), 1, usecase.AdjustStockInput{ProductID: pid, Direction: "subtract", Quantity: 5, Reason: "shrinkage"})
	assert.ErrorIs(t, err, usecase.ErrInvalidAdjustment)
	assertCounterInvariant(t, store, pid)
}

func TestAdjustStock_RejectsUnknownDirection(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.AdjustStock(context.Background(), 1, usecase.AdjustStockInput{ProductID: pid, Direction: "sideways", Quantity: 1, Reason: "x"})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

// =====================
// Reserve / Release
// =====================

func TestReserveStock_InsufficientCarriesCounts(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 5})
	require.NoError(t, err)

	_, err = uc.ReserveStock(context.Background(), 1, pid, 8, "")
	var ins *usecase.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, int64(5), ins.Available)
	assert.Equal(t, int64(8), ins.Requested)

	//失敗した予約は履歴に残らない
	require.Len(t, store.movements, 1)
	assertCounterInvariant(t, store, pid)
}

func TestReleaseStock_RejectsExceedingReserved(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10})
	require.NoError(t, err)
	_, err = uc.ReserveStock(context.Background(), 1, pid, 3, "")
	require.NoError(t, err)

	//確保済みの3を超える解除はreservedが負になるので拒否
	_, err = uc.ReleaseStock(context.Background(), 1, pid, 4)
	assert.ErrorIs(t, err, usecase.ErrInvalidAdjustment)
	assertCounterInvariant(t, store, pid)
}

func TestReserveStock_ConcurrentNeverOverReserves(t *testing.T) {
	const (
		n   = 5
		qty = 10
	)

	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	//available = (N-1)*Q
	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: (n - 1) * qty})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.ReserveStock(context.Background(), 1, pid, qty, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var ins *usecase.InsufficientStockError
		require.ErrorAs(t, err, &ins)
		insufficient++
	}

	assert.Equal(t, n-1, succeeded)
	assert.Equal(t, 1, insufficient)

	rec := store.inventory[pid]
	assert.Equal(t, int64((n-1)*qty), rec.ReservedStock)
	assert.Equal(t, int64(0), rec.AvailableStock)
	assertCounterInvariant(t, store, pid)
}

// =====================
// StockTake / Return / シナリオ
// =====================

func TestStockTake_OverwritesAndCountsDifference(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 50})
	require.NoError(t, err)

	out, err := uc.StockTake(context.Background(), 1, usecase.StockTakeInput{ProductID: pid, ActualCount: 45})
	require.NoError(t, err)
	assert.Equal(t, int64(-5), out.Difference)
	assert.Equal(t, int64(45), out.CurrentStock)
	assert.Equal(t, int64(1), store.inventory[pid].StockTakeCount)
	assertCounterInvariant(t, store, pid)
}

func TestStockTake_RejectsNegativeCount(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	_, err := uc.StockTake(context.Background(), 1, usecase.StockTakeInput{ProductID: pid, ActualCount: -1})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

// 入荷から解除までの通しシナリオ：
// Receive(50) → Reserve(20) → StockTake(45) → Release(20)
func TestStockLifecycleScenario(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)
	ctx := context.Background()

	out, err := uc.ReceiveStock(ctx, 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(50), out.CurrentStock)
	assert.Equal(t, int64(50), out.AvailableStock)

	out, err = uc.ReserveStock(ctx, 1, pid, 20, "")
	require.NoError(t, err)
	assert.Equal(t, int64(20), out.ReservedStock)
	assert.Equal(t, int64(30), out.AvailableStock)

	out, err = uc.StockTake(ctx, 1, usecase.StockTakeInput{ProductID: pid, ActualCount: 45})
	require.NoError(t, err)
	assert.Equal(t, int64(-5), out.Difference)
	assert.Equal(t, int64(45), out.CurrentStock)
	assert.Equal(t, int64(25), out.AvailableStock)

	out, err = uc.ReleaseStock(ctx, 1, pid, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.ReservedStock)
	assert.Equal(t, int64(45), out.AvailableStock)

	assertCounterInvariant(t, store, pid)

	//操作1回につき履歴1件
	assert.Len(t, store.movements, 4)
}

func TestReturnRestock_CreatesMissingRecord(t *testing.T) {
	store := newFakeStore()
	//商品はあるが在庫レコードが無い
	pid := store.allocID()
	store.products[pid] = model.Product{ID: pid, SKU: "SKU-X", Name: "legacy"}

	uc := newStockUsecase(store)

	out, err := uc.ReturnRestock(context.Background(), 1, usecase.ReturnRestockInput{ProductID: pid, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.CurrentStock)
	assert.Equal(t, int64(3), out.AvailableStock)
	assert.Equal(t, int64(0), out.PreviousStock)

	rec := store.inventory[pid]
	assert.Equal(t, int64(3), rec.CurrentStock)
	assertCounterInvariant(t, store, pid)
}

// =====================
// ロールバック（履歴とカウンタの同時性）
// =====================

func TestReceiveStock_AppendFailureRollsBackCounters(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)

	store.failAppend = true
	_, err := uc.ReceiveStock(context.Background(), 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 10})
	require.Error(t, err)

	//履歴が書けなければカウンタも動かない
	rec := store.inventory[pid]
	assert.Equal(t, int64(0), rec.CurrentStock)
	assert.Equal(t, int64(0), rec.AvailableStock)
	assert.Empty(t, store.movements)
}

// =====================
// 予約・解除のスナップショット正規化
// =====================

func TestReserveAndRelease_SnapshotCurrentStock(t *testing.T) {
	store := newFakeStore()
	pid := seedProduct(store, 0)
	uc := newStockUsecase(store)
	ctx := context.Background()

	_, err := uc.ReceiveStock(ctx, 1, usecase.ReceiveStockInput{ProductID: pid, Quantity: 30})
	require.NoError(t, err)

	_, err = uc.ReserveStock(ctx, 1, pid, 10, "")
	require.NoError(t, err)
	_, err = uc.ReleaseStock(ctx, 1, pid, 10)
	require.NoError(t, err)

	require.Len(t, store.movements, 3)

	reserve := store.movements[1]
	assert.Equal(t, model.MovementReservation, reserve.MovementType)
	assert.Equal(t, int64(-10), reserve.QuantityChange)
	assert.Equal(t, int64(30), reserve.PreviousStock)
	assert.Equal(t, int64(30), reserve.NewStock)

	release := store.movements[2]
	assert.Equal(t, model.MovementReservation, release.MovementType)
	assert.Equal(t, int64(10), release.QuantityChange)
	assert.Equal(t, int64(30), release.PreviousStock)
	assert.Equal(t, int64(30), release.NewStock)
}
