package services_test

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-service/models"
	"storefront-service/repository"
)

// --- Mock coupon repository ---

type mockCouponRepo struct {
	coupons map[string]*models.Coupon

	// beforeRedeem, when set, runs just before the redeem check so
	// tests can change the coupon between validation and commit.
	beforeRedeem func()
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (m *mockCouponRepo) Create(_ context.Context, c *models.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, exists := m.coupons[c.Code]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.coupons[c.Code] = c
	return nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	c, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !c.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) Redeem(_ context.Context, code string) (bool, error) {
	if m.beforeRedeem != nil {
		m.beforeRedeem()
	}
	c, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !c.Active || time.Now().After(c.ExpiresAt) || c.Exhausted() {
		return false, nil
	}
	c.UsedCount++
	return true, nil
}

func (m *mockCouponRepo) Deactivate(_ context.Context, code string) error {
	c, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Active = false
	return nil
}

func (m *mockCouponRepo) FindAll(_ context.Context, _, _ int) ([]models.Coupon, int64, error) {
	var result []models.Coupon
	for _, c := range m.coupons {
		result = append(result, *c)
	}
	return result, int64(len(result)), nil
}

// --- Mock product repository ---

type mockProductRepo struct {
	products map[uuid.UUID]*models.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (m *mockProductRepo) add(p *models.Product) *models.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (m *mockProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var result []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	p, ok := m.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (m *mockProductRepo) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	if p, ok := m.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

// --- Mock order repository ---

type mockOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (m *mockOrderRepo) add(o *models.Order) *models.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	m.orders[o.ID] = o
	return o
}

func (m *mockOrderRepo) Create(_ context.Context, o *models.Order) error {
	m.add(o)
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByIDAndUserID(_ context.Context, id, userID uuid.UUID) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID == nil || *o.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByInvoice(_ context.Context, invoice string) (*models.Order, error) {
	for _, o := range m.orders {
		if o.Invoice == invoice {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrderRepo) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	var result []models.Order
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID {
			result = append(result, *o)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockOrderRepo) FindAll(_ context.Context, status string, _, _ int) ([]models.Order, int64, error) {
	var result []models.Order
	for _, o := range m.orders {
		if status == "" || string(o.Status) == status {
			result = append(result, *o)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, txnID string) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusPaid
	now := time.Now()
	o.PaidAt = &now
	if txnID != "" {
		o.TransactionID = &txnID
	}
	return true, nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from, to models.PaymentStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != from {
		return false, nil
	}
	o.PaymentStatus = to
	return true, nil
}

func (m *mockOrderRepo) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusProcessing {
		return false, nil
	}
	o.Status = models.OrderStatusCancelled
	now := time.Now()
	o.CancelledAt = &now
	return true, nil
}

// --- Mock download repository ---

type grantKey struct {
	user, product, order uuid.UUID
}

type mockDownloadRepo struct {
	grants map[grantKey]*models.DigitalDownload
}

func newMockDownloadRepo() *mockDownloadRepo {
	return &mockDownloadRepo{grants: make(map[grantKey]*models.DigitalDownload)}
}

func (m *mockDownloadRepo) Find(_ context.Context, userID, productID, orderID uuid.UUID) (*models.DigitalDownload, error) {
	g, ok := m.grants[grantKey{userID, productID, orderID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (m *mockDownloadRepo) FindByUserAndProduct(_ context.Context, userID, productID uuid.UUID) ([]models.DigitalDownload, error) {
	var result []models.DigitalDownload
	for k, g := range m.grants {
		if k.user == userID && k.product == productID {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockDownloadRepo) Create(_ context.Context, g *models.DigitalDownload) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	key := grantKey{g.UserID, g.ProductID, g.OrderID}
	if _, exists := m.grants[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	m.grants[key] = g
	return nil
}

func (m *mockDownloadRepo) IncrementDownloadCount(_ context.Context, grantID uuid.UUID) (bool, error) {
	for _, g := range m.grants {
		if g.ID == grantID {
			if g.DownloadCount >= g.MaxDownload {
				return false, nil
			}
			g.DownloadCount++
			return true, nil
		}
	}
	return false, nil
}

// --- Mock payment repository ---

type mockPaymentRepo struct {
	records map[uuid.UUID]*models.PaymentRecord
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{records: make(map[uuid.UUID]*models.PaymentRecord)}
}

func (m *mockPaymentRepo) Create(_ context.Context, r *models.PaymentRecord) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = models.PaymentRecordInitiated
	}
	m.records[r.ID] = r
	return nil
}

func (m *mockPaymentRepo) FindByReference(_ context.Context, ref string) (*models.PaymentRecord, error) {
	for _, r := range m.records {
		if r.Reference == ref {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) FindLatestByOrderID(_ context.Context, orderID uuid.UUID) (*models.PaymentRecord, error) {
	for _, r := range m.records {
		if r.OrderID == orderID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.PaymentRecordStatus, txnID string) error {
	if r, ok := m.records[id]; ok {
		r.Status = status
		if txnID != "" {
			r.TransactionID = txnID
		}
	}
	return nil
}

// --- Mock delivery repository ---

type mockDeliveryRepo struct {
	charges map[string]float64
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{charges: make(map[string]float64)}
}

func (m *mockDeliveryRepo) ChargeForLocation(_ context.Context, location string) (float64, error) {
	if charge, ok := m.charges[strings.ToLower(strings.TrimSpace(location))]; ok {
		return charge, nil
	}
	return models.DefaultDeliveryFee, nil
}

func (m *mockDeliveryRepo) Upsert(_ context.Context, charge *models.DeliveryCharge) error {
	m.charges[strings.ToLower(strings.TrimSpace(charge.Location))] = charge.Charge
	return nil
}

func (m *mockDeliveryRepo) FindAll(_ context.Context) ([]models.DeliveryCharge, error) {
	var result []models.DeliveryCharge
	for loc, charge := range m.charges {
		result = append(result, models.DeliveryCharge{Location: loc, Charge: charge})
	}
	return result, nil
}

// --- Mock cart repository ---

type mockCartRepo struct {
	carts map[string]*models.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*models.Cart)}
}

func (m *mockCartRepo) GetCart(_ context.Context, userID string) (*models.Cart, error) {
	return m.carts[userID], nil
}

func (m *mockCartRepo) SaveCart(_ context.Context, cart *models.Cart) error {
	m.carts[cart.UserID] = cart
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, userID string) error {
	delete(m.carts, userID)
	return nil
}

// --- Mock checkout transaction ---

// mockCheckoutRepo replays the real transaction semantics against the
// in-memory product and coupon mocks, rolling stock back when a later
// step fails.
type mockCheckoutRepo struct {
	products *mockProductRepo
	coupons  *mockCouponRepo
	orders   *mockOrderRepo
}

type mockCheckoutTx struct {
	repo        *mockCheckoutRepo
	decremented map[uuid.UUID]int
}

func (r *mockCheckoutRepo) RunInTransaction(_ context.Context, fn func(tx repository.CheckoutTx) error) error {
	tx := &mockCheckoutTx{repo: r, decremented: make(map[uuid.UUID]int)}
	if err := fn(tx); err != nil {
		for id, qty := range tx.decremented {
			r.products.products[id].Stock += qty
		}
		return err
	}
	return nil
}

func (t *mockCheckoutTx) DecrementStock(productID uuid.UUID, qty int) (bool, error) {
	ok, err := t.repo.products.DecrementStock(context.Background(), productID, qty)
	if ok {
		t.decremented[productID] += qty
	}
	return ok, err
}

func (t *mockCheckoutTx) RedeemCoupon(code string) (bool, error) {
	return t.repo.coupons.Redeem(context.Background(), code)
}

func (t *mockCheckoutTx) FindCoupon(code string) (*models.Coupon, error) {
	c, ok := t.repo.coupons.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (t *mockCheckoutTx) CreateOrder(order *models.Order) error {
	return t.repo.orders.Create(context.Background(), order)
}

// --- Mock event publisher ---

type mockPublisher struct {
	events []interface{}
}

func (m *mockPublisher) Publish(_ context.Context, event interface{}) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }
