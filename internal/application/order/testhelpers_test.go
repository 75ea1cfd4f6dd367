package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/catalog"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/partner"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== Order repository ====================

// memoryOrderRepository stores order states and enforces the version check
// the same way the SQL repository does. Every read returns a fresh aggregate.
type memoryOrderRepository struct {
	mu     sync.Mutex
	states map[uuid.UUID]order.State
	saves  int

	// beforeCreate runs ahead of every Create, outside the lock
	beforeCreate func()
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{states: make(map[uuid.UUID]order.State)}
}

func (r *memoryOrderRepository) find(match func(order.State) bool) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.states {
		if match(st) {
			return order.Restore(st), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *memoryOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	return r.find(func(st order.State) bool { return st.ID == id })
}

func (r *memoryOrderRepository) FindByNumber(_ context.Context, number string) (*order.Order, error) {
	return r.find(func(st order.State) bool { return st.Number == number })
}

func (r *memoryOrderRepository) FindByTrackingToken(_ context.Context, token string) (*order.Order, error) {
	return r.find(func(st order.State) bool { return st.TrackingToken == token })
}

func (r *memoryOrderRepository) FindBySignatureDocument(_ context.Context, documentID string) (*order.Order, error) {
	return r.find(func(st order.State) bool { return documentID != "" && st.Signature.DocumentID == documentID })
}

func (r *memoryOrderRepository) FindCartByUser(_ context.Context, userID uuid.UUID) (*order.Order, error) {
	return r.find(func(st order.State) bool { return st.UserID == userID && st.Status == order.StatusCart })
}

func (r *memoryOrderRepository) FindByUser(_ context.Context, userID uuid.UUID, _ shared.Filter) ([]*order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, st := range r.states {
		if st.UserID == userID {
			out = append(out, order.Restore(st))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryOrderRepository) Create(_ context.Context, o *order.Order) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Status() == order.StatusCart {
		for _, st := range r.states {
			if st.UserID == o.UserID() && st.Status == order.StatusCart {
				return order.ErrCartExists
			}
		}
	}
	r.states[o.ID] = o.State()
	return nil
}

func (r *memoryOrderRepository) SaveWithLock(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.states[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return shared.ErrConflictingUpdate
	}
	o.Version++
	r.states[o.ID] = o.State()
	r.saves++
	return nil
}

func (r *memoryOrderRepository) get(t *testing.T, id uuid.UUID) *order.Order {
	t.Helper()
	o, err := r.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

// seed stores an order built from st. Missing identity fields are filled in.
func (r *memoryOrderRepository) seed(st order.State) *order.Order {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.Number == "" {
		st.Number = "ORD-TEST-" + st.ID.String()[:8]
	}
	if st.TrackingToken == "" {
		st.TrackingToken = "tok-" + st.ID.String()
	}
	if st.Version == 0 {
		st.Version = 1
	}
	o := order.Restore(st)
	r.mu.Lock()
	r.states[o.ID] = o.State()
	r.mu.Unlock()
	return o
}

var _ order.Repository = (*memoryOrderRepository)(nil)

// ==================== Catalog and requisites ====================

type memoryProductRepository struct {
	products map[uuid.UUID]*catalog.Product
}

func (r *memoryProductRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, shared.NewNotFoundError("product", id)
}

func (r *memoryProductRepository) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, shared.NewNotFoundError("product", sku)
}

func (r *memoryProductRepository) FindActive(context.Context, string, shared.Filter) ([]catalog.Product, int64, error) {
	return nil, 0, nil
}

func (r *memoryProductRepository) Save(_ context.Context, p *catalog.Product) error {
	r.products[p.ID] = p
	return nil
}

type memoryRequisiteRepository struct {
	requisites map[uuid.UUID]*partner.CompanyRequisite
}

func (r *memoryRequisiteRepository) FindByID(_ context.Context, id uuid.UUID) (*partner.CompanyRequisite, error) {
	if req, ok := r.requisites[id]; ok {
		return req, nil
	}
	return nil, shared.NewNotFoundError("requisite", id)
}

func (r *memoryRequisiteRepository) FindByUser(_ context.Context, userID uuid.UUID) ([]partner.CompanyRequisite, error) {
	var out []partner.CompanyRequisite
	for _, req := range r.requisites {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *memoryRequisiteRepository) Save(_ context.Context, req *partner.CompanyRequisite) error {
	r.requisites[req.ID] = req
	return nil
}

// ==================== Adapters ====================

// MockSignatureProvider is a mock implementation of SignatureProvider
type MockSignatureProvider struct {
	mock.Mock
}

func (m *MockSignatureProvider) UploadBlob(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureProvider) CreateDocument(ctx context.Context, meta integration.DocumentMetadata, blobID string) (string, error) {
	args := m.Called(ctx, meta, blobID)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureProvider) CreateRoute(ctx context.Context, documentID string, route integration.Route) error {
	args := m.Called(ctx, documentID, route)
	return args.Error(0)
}

func (m *MockSignatureProvider) RequestContentToSign(ctx context.Context, documentID, signerID string) (*integration.ContentToSign, error) {
	args := m.Called(ctx, documentID, signerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ContentToSign), args.Error(1)
}

func (m *MockSignatureProvider) DownloadContent(ctx context.Context, link string) ([]byte, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSignatureProvider) UploadSignature(ctx context.Context, signature []byte) (string, error) {
	args := m.Called(ctx, signature)
	return args.String(0), args.Error(1)
}

func (m *MockSignatureProvider) SaveSignature(ctx context.Context, req integration.SaveSignatureRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockERPGateway is a mock implementation of ERPGateway
type MockERPGateway struct {
	mock.Mock
}

func (m *MockERPGateway) PullStockSnapshot(ctx context.Context, externalID string) ([]inventory.StockLine, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockLine), args.Error(1)
}

func (m *MockERPGateway) PushPaymentTrigger(ctx context.Context, trigger integration.PaymentTrigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) RequestDriverSearch(ctx context.Context, req integration.DriverSearchRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockDispatcher) ReportStatus(ctx context.Context, report integration.StatusReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockDispatcher) UpdateLiveLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) error {
	args := m.Called(ctx, orderID, lat, lng)
	return args.Error(0)
}

// stubRenderer returns a fixed HTML body, or err when set
type stubRenderer struct {
	mu    sync.Mutex
	err   error
	kinds []integration.DocumentKind
}

func (r *stubRenderer) Render(_ context.Context, doc integration.Document) (*integration.RenderedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, doc.Kind)
	if r.err != nil {
		return nil, r.err
	}
	return &integration.RenderedDocument{
		Data:        []byte("<html>" + doc.Number + "</html>"),
		ContentType: "text/html; charset=utf-8",
		Extension:   ".html",
	}, nil
}

// stubArtifacts records stored keys
type stubArtifacts struct {
	mu   sync.Mutex
	err  error
	keys []string
}

func (a *stubArtifacts) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, key)
	return "memory://" + key, nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) statusChanges() []*order.StatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*order.StatusChangedEvent
	for _, ev := range p.events {
		if changed, ok := ev.(*order.StatusChangedEvent); ok {
			out = append(out, changed)
		}
	}
	return out
}

// ==================== Fixture ====================

type fixture struct {
	svc        *Service
	orders     *memoryOrderRepository
	products   *memoryProductRepository
	requisites *memoryRequisiteRepository
	signature  *MockSignatureProvider
	erp        *MockERPGateway
	dispatch   *MockDispatcher
	renderer   *stubRenderer
	artifacts  *stubArtifacts
	events     *recordingPublisher
	now        time.Time
}

func newFixture(t *testing.T, opts ...func(*Collaborators)) *fixture {
	t.Helper()
	f := &fixture{
		orders:     newMemoryOrderRepository(),
		products:   &memoryProductRepository{products: map[uuid.UUID]*catalog.Product{}},
		requisites: &memoryRequisiteRepository{requisites: map[uuid.UUID]*partner.CompanyRequisite{}},
		signature:  new(MockSignatureProvider),
		erp:        new(MockERPGateway),
		dispatch:   new(MockDispatcher),
		renderer:   &stubRenderer{},
		artifacts:  &stubArtifacts{},
		events:     &recordingPublisher{},
		now:        time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	c := Collaborators{
		Orders:     f.orders,
		Products:   f.products,
		Requisites: f.requisites,
		Signature:  f.signature,
		ERP:        f.erp,
		Dispatch:   f.dispatch,
		Renderer:   f.renderer,
		Artifacts:  f.artifacts,
	}
	for _, opt := range opts {
		opt(&c)
	}
	settings := Settings{
		SignerID:    "company-signer",
		Pickup:      integration.Location{Address: "Raiymbek 10", City: "Almaty"},
		Retry:       RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
		CallTimeout: time.Second,
	}
	f.svc = NewService(c, settings, zap.NewNop())
	f.svc.SetEventPublisher(f.events)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addProduct(t *testing.T, sku string, price int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Part "+sku, decimal.NewFromInt(price), "parts")
	require.NoError(t, err)
	f.products.products[p.ID] = p
	return p
}

func (f *fixture) addRequisite(t *testing.T, userID uuid.UUID) *partner.CompanyRequisite {
	t.Helper()
	r, err := partner.NewCompanyRequisite(userID, "Steppe Mining LLP", "123456789012", "Almaty, Abay 1")
	require.NoError(t, err)
	r.DirectorName = "A. Director"
	f.requisites.requisites[r.ID] = r
	return r
}

// seedAt stores an order owned by userID in the given status with one line
// and a billing snapshot.
func (f *fixture) seedAt(userID uuid.UUID, status order.Status, mutate ...func(*order.State)) *order.Order {
	price := decimal.NewFromInt(50000)
	st := order.State{
		UserID: userID,
		Status: status,
		Items: []order.OrderItem{{
			ID:           uuid.New(),
			ProductID:    uuid.New(),
			SKU:          "PUMP-1",
			Name:         "Pump",
			Quantity:     decimal.NewFromInt(2),
			UnitPrice:    &price,
			CatalogPrice: price,
			Amount:       decimal.NewFromInt(100000),
		}},
		Delivery: order.DeliveryInfo{Address: "Abay 1", City: "Almaty"},
	}
	if status != order.StatusCart {
		reqID := uuid.New()
		st.RequisiteID = &reqID
		st.Billing = &order.BillingSnapshot{CompanyName: "Steppe Mining LLP", TaxID: "123456789012", DirectorName: "A. Director"}
	}
	for _, m := range mutate {
		m(&st)
	}
	return f.orders.seed(st)
}
