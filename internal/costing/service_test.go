package costing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/cache"
	"github.com/flaelle/flaelle/internal/shared"
)

type memoryState struct {
	shipments map[string]inventory.Shipment
	products  map[string]inventory.Product
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		shipments: make(map[string]inventory.Shipment, len(s.shipments)),
		products:  make(map[string]inventory.Product, len(s.products)),
	}
	for k, v := range s.shipments {
		out.shipments[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	return out
}

type memoryRepo struct {
	mu     sync.Mutex
	state  memoryState
	failOn string
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{shipments: map[string]inventory.Shipment{}, products: map[string]inventory.Product{}}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, state: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) addShipment(total, transport int64) inventory.Shipment {
	s := inventory.Shipment{
		ID:                   uuid.NewString(),
		Name:                 "Balle mixte",
		Status:               inventory.ShipmentActive,
		TotalAcquisitionCost: decimal.NewFromInt(total),
	}
	if transport > 0 {
		s.TransportCost = decimal.NewNullDecimal(decimal.NewFromInt(transport))
	}
	r.state.shipments[s.ID] = s
	return s
}

func (r *memoryRepo) addProduct(shipmentID string, supplierValue int64, cost int64) inventory.Product {
	p := inventory.Product{
		ID:                  uuid.NewString(),
		Name:                "Article",
		OnHandQuantity:      4,
		UnitAcquisitionCost: decimal.NewFromInt(cost),
		ShipmentID:          &shipmentID,
	}
	if supplierValue >= 0 {
		p.SupplierQuotedValue = decimal.NewNullDecimal(decimal.NewFromInt(supplierValue))
	}
	r.state.products[p.ID] = p
	return p
}

func (r *memoryRepo) cost(productID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.products[productID].UnitAcquisitionCost.String()
}

func (r *memoryRepo) shipment(id string) inventory.Shipment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.shipments[id]
}

func (tx *memoryTx) GetShipmentForUpdate(ctx context.Context, id string) (inventory.Shipment, error) {
	s, ok := tx.state.shipments[id]
	if !ok {
		return inventory.Shipment{}, inventory.ErrShipmentNotFound
	}
	return s, nil
}

func (tx *memoryTx) LockShipmentItems(ctx context.Context, shipmentID string) ([]Item, error) {
	var items []Item
	for _, p := range tx.state.products {
		if p.ShipmentID == nil || *p.ShipmentID != shipmentID {
			continue
		}
		items = append(items, Item{ProductID: p.ID, Name: p.Name, SupplierQuotedValue: p.SupplierQuotedValue, CurrentCost: p.UnitAcquisitionCost})
	}
	return items, nil
}

func (tx *memoryTx) UpdateProductCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	if tx.repo.failOn == "UpdateProductCost" {
		return errors.New("injected failure")
	}
	p, ok := tx.state.products[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.UnitAcquisitionCost = cost
	tx.state.products[productID] = p
	return nil
}

func (tx *memoryTx) SetCoefficient(ctx context.Context, shipmentID string, coefficient decimal.Decimal) error {
	if tx.repo.failOn == "SetCoefficient" {
		return errors.New("injected failure")
	}
	s := tx.state.shipments[shipmentID]
	s.DistributionCoefficient = decimal.NewNullDecimal(coefficient)
	tx.state.shipments[shipmentID] = s
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type countingMetrics struct {
	outcomes []string
}

func (m *countingMetrics) ObserveDistribution(outcome string, products int) {
	m.outcomes = append(m.outcomes, outcome)
}

func TestDistributeCostsPersistsCostsAndCoefficient(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(150000, 10000)
	a := repo.addProduct(shipment.ID, 800, 1)
	b := repo.addProduct(shipment.ID, 1500, 1)
	audit := &memoryAudit{}
	metrics := &countingMetrics{}
	svc := NewService(repo, audit, ServiceConfig{Metrics: metrics})

	result, err := svc.DistributeCosts(context.Background(), shipment.ID, "admin")
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, OverwriteWarning, result.Warning)
	require.Equal(t, "160000", result.RealTotalCost.String())

	require.Equal(t, "55652", repo.cost(a.ID))
	require.Equal(t, "104348", repo.cost(b.ID))
	stored := repo.shipment(shipment.ID)
	require.True(t, stored.DistributionCoefficient.Valid)
	require.Equal(t, "69.565217", stored.DistributionCoefficient.Decimal.String())

	require.Len(t, audit.logs, 1)
	require.Equal(t, "costing:distribute", audit.logs[0].Action)
	require.Equal(t, "admin", audit.logs[0].Actor)
	require.Equal(t, []string{"ok"}, metrics.outcomes)
}

func TestDistributeCostsIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(98765, 4321)
	ids := []string{
		repo.addProduct(shipment.ID, 3, 0).ID,
		repo.addProduct(shipment.ID, 7, 0).ID,
		repo.addProduct(shipment.ID, 11, 0).ID,
	}
	svc := NewService(repo, nil, ServiceConfig{})

	_, err := svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.NoError(t, err)
	first := make([]string, 0, len(ids))
	for _, id := range ids {
		first = append(first, repo.cost(id))
	}

	_, err = svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.NoError(t, err)
	for i, id := range ids {
		require.Equal(t, first[i], repo.cost(id))
	}
}

func TestDistributeCostsZeroSupplierValueMutatesNothing(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(50000, 0)
	a := repo.addProduct(shipment.ID, -1, 1200)
	b := repo.addProduct(shipment.ID, 0, 900)
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, ServiceConfig{Metrics: metrics})

	_, err := svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.ErrorIs(t, err, ErrZeroSupplierValue)
	require.Equal(t, "1200", repo.cost(a.ID))
	require.Equal(t, "900", repo.cost(b.ID))
	require.False(t, repo.shipment(shipment.ID).DistributionCoefficient.Valid)
	require.Equal(t, []string{"zero_supplier_value"}, metrics.outcomes)
}

func TestDistributeCostsShipmentWithoutProducts(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(50000, 0)
	svc := NewService(repo, nil, ServiceConfig{})

	_, err := svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.ErrorIs(t, err, ErrZeroSupplierValue)
}

func TestDistributeCostsRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(1000, 0)
	a := repo.addProduct(shipment.ID, 1, 10)
	b := repo.addProduct(shipment.ID, 1, 20)
	repo.failOn = "SetCoefficient"
	svc := NewService(repo, nil, ServiceConfig{})

	_, err := svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.Error(t, err)
	require.Equal(t, "10", repo.cost(a.ID))
	require.Equal(t, "20", repo.cost(b.ID))
}

func TestDistributeCostsUnknownOrInvalidShipment(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})

	_, err := svc.DistributeCosts(context.Background(), uuid.NewString(), "")
	require.ErrorIs(t, err, inventory.ErrShipmentNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.DistributeCosts(context.Background(), "not-an-id", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPreviewDistributionDoesNotWrite(t *testing.T) {
	repo := newMemoryRepo()
	shipment := repo.addShipment(160000, 0)
	a := repo.addProduct(shipment.ID, 800, 7)
	repo.addProduct(shipment.ID, 1500, 7)
	svc := NewService(repo, nil, ServiceConfig{})

	result, err := svc.PreviewDistribution(context.Background(), shipment.ID)
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.Empty(t, result.Warning)
	require.Equal(t, "160000", result.AllocatedTotal.String())
	require.Equal(t, "7", repo.cost(a.ID))
	require.False(t, repo.shipment(shipment.ID).DistributionCoefficient.Valid)
}

func TestDistributeCostsFailsWhenShipmentLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := cache.NewLocker(client, 0)

	repo := newMemoryRepo()
	shipment := repo.addShipment(1000, 0)
	a := repo.addProduct(shipment.ID, 1, 10)
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, ServiceConfig{Locker: locker, Metrics: metrics})

	release, err := locker.Obtain(context.Background(), shared.ShipmentLockKey(shipment.ID), time.Minute)
	require.NoError(t, err)

	_, err = svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.ErrorIs(t, err, ErrDistributionBusy)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, "10", repo.cost(a.ID))
	require.Equal(t, []string{"busy"}, metrics.outcomes)

	require.NoError(t, release(context.Background()))
	_, err = svc.DistributeCosts(context.Background(), shipment.ID, "")
	require.NoError(t, err)
	require.Equal(t, "1000", repo.cost(a.ID))
	require.False(t, mr.Exists(shared.ShipmentLockKey(shipment.ID)))
}
