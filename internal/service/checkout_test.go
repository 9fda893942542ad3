package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originexpo/ticketing/internal/chapa"
	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/queue"
	"github.com/originexpo/ticketing/internal/repository"
)

// fakeStore is an in-memory OrderStore mirroring the repository's
// observable behavior: batches keyed by reference, idempotent PAID
// transition, QR tokens assigned once.
type fakeStore struct {
	types       map[uint64]model.TicketType
	batches     map[string][]*model.Ticket
	gatewayRefs map[string]string
	confirmErr  error
	createErr   error
	nextToken   int
}

func newFakeStore(types ...model.TicketType) *fakeStore {
	f := &fakeStore{
		types:       map[uint64]model.TicketType{},
		batches:     map[string][]*model.Ticket{},
		gatewayRefs: map[string]string{},
	}
	for _, tt := range types {
		f.types[tt.ID] = tt
	}
	return f
}

func (f *fakeStore) TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	tt, ok := f.types[id]
	if !ok {
		return nil, repository.ErrTicketTypeNotFound
	}
	return &tt, nil
}

func (f *fakeStore) ListTicketTypes(ctx context.Context) ([]model.TicketType, error) {
	out := make([]model.TicketType, 0, len(f.types))
	for _, tt := range f.types {
		out = append(out, tt)
	}
	return out, nil
}

func (f *fakeStore) CreateBatch(ctx context.Context, tickets []*model.Ticket) error {
	if f.createErr != nil {
		return f.createErr
	}
	ref := tickets[0].Reference
	f.batches[ref] = append(f.batches[ref], tickets...)
	return nil
}

func (f *fakeStore) SetGatewayRef(ctx context.Context, reference, gatewayRef string) error {
	f.gatewayRefs[reference] = gatewayRef
	return nil
}

func (f *fakeStore) ResolveReference(ctx context.Context, ref string) (string, error) {
	if _, ok := f.batches[ref]; ok {
		return ref, nil
	}
	for reference, gw := range f.gatewayRefs {
		if gw == ref {
			return reference, nil
		}
	}
	return "", repository.ErrReferenceNotFound
}

func (f *fakeStore) ConfirmPaid(ctx context.Context, reference, gatewayRef string) ([]model.Ticket, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	batch, ok := f.batches[reference]
	if !ok {
		return nil, repository.ErrReferenceNotFound
	}
	if batch[0].Status == model.TicketPaid {
		return nil, nil // already transitioned, nothing issued
	}
	issued := make([]model.Ticket, 0, len(batch))
	for _, t := range batch {
		t.Status = model.TicketPaid
		if t.QRToken == nil {
			f.nextToken++
			tok := string(rune('a'+f.nextToken)) + "-token"
			t.QRToken = &tok
		}
		issued = append(issued, *t)
	}
	return issued, nil
}

func (f *fakeStore) GetByQRToken(ctx context.Context, token string) (*model.Ticket, error) {
	for _, batch := range f.batches {
		for _, t := range batch {
			if t.QRToken != nil && *t.QRToken == token {
				cp := *t
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (f *fakeStore) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	var n int64
	for _, batch := range f.batches {
		for _, t := range batch {
			if t.Status == model.TicketPending {
				t.Status = model.TicketAbandoned
				n++
			}
		}
	}
	return n, nil
}

type fakeGateway struct {
	initReq   chapa.InitializeRequest
	initRes   *chapa.InitializeResponse
	initErr   error
	verifyRes *chapa.VerifyResponse
	verifyErr error
	verified  []string
}

func (f *fakeGateway) Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.InitializeResponse, error) {
	f.initReq = req
	return f.initRes, f.initErr
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*chapa.VerifyResponse, error) {
	f.verified = append(f.verified, reference)
	return f.verifyRes, f.verifyErr
}

type fakePublisher struct {
	events []queue.TicketIssuedEvent
	err    error
}

func (f *fakePublisher) PublishTicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func okInitResponse() *chapa.InitializeResponse {
	res := &chapa.InitializeResponse{Status: "success", Message: "ok"}
	res.Data.CheckoutURL = "https://checkout.chapa.co/pay/x"
	res.Data.ID = "gw-1"
	return res
}

func paidVerifyResponse(ref string) *chapa.VerifyResponse {
	res := &chapa.VerifyResponse{Status: "success"}
	res.Data.Status = "success"
	res.Data.Reference = "gw-1"
	res.Data.TxRef = ref
	return res
}

func regularType() model.TicketType {
	return model.TicketType{ID: 1, Name: "Regular", Price: decimal.RequireFromString("500.00"), Currency: "ETB"}
}

func TestCreateOrderPersistsOneRowPerUnit(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1,
		FullName:     "Abebe Kebede",
		Email:        "abebe@example.com",
		Phone:        "+251911000000",
		Quantity:     2,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Reference, 32)
	assert.Equal(t, "https://checkout.chapa.co/pay/x", res.CheckoutURL)

	batch := store.batches[res.Reference]
	require.Len(t, batch, 2)
	for _, tk := range batch {
		assert.Equal(t, model.TicketPending, tk.Status)
		assert.Equal(t, res.Reference, tk.Reference)
		assert.True(t, tk.Amount.Equal(decimal.RequireFromString("500.00")), "unit price per row")
		assert.Nil(t, tk.QRToken)
	}

	// The gateway is charged the batch total, not the unit price.
	assert.True(t, gw.initReq.Amount.Equal(decimal.RequireFromString("1000.00")),
		"expected 1000, got %s", gw.initReq.Amount)
	assert.Equal(t, res.Reference, gw.initReq.TxRef)
	assert.Contains(t, gw.initReq.CallbackURL, "/v1/tickets/webhook")
	assert.Contains(t, gw.initReq.ReturnURL, res.Reference)

	// Gateway transaction id is recorded for reference fallback.
	assert.Equal(t, "gw-1", store.gatewayRefs[res.Reference])
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	store := newFakeStore(regularType())
	svc := NewCheckoutService(store, &fakeGateway{initRes: okInitResponse()}, nil, nil, "https://tickets.example")

	cases := []struct {
		name string
		in   CreateOrderInput
	}{
		{"missing type", CreateOrderInput{FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1}},
		{"missing name", CreateOrderInput{TicketTypeID: 1, Email: "a@b.c", Phone: "1", Quantity: 1}},
		{"bad email", CreateOrderInput{TicketTypeID: 1, FullName: "A", Email: "not-an-email", Phone: "1", Quantity: 1}},
		{"missing phone", CreateOrderInput{TicketTypeID: 1, FullName: "A", Email: "a@b.c", Quantity: 1}},
		{"zero quantity", CreateOrderInput{TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 0}},
		{"negative quantity", CreateOrderInput{TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.in)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, store.batches, "no rows on validation failure")
		})
	}
}

func TestCreateOrderUnknownTicketType(t *testing.T) {
	store := newFakeStore()
	svc := NewCheckoutService(store, &fakeGateway{}, nil, nil, "https://tickets.example")

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 99, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	assert.ErrorIs(t, err, repository.ErrTicketTypeNotFound)
	assert.Empty(t, store.batches)
}

func TestCreateOrderGatewayFailureKeepsPendingRows(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initErr: &chapa.Error{Op: chapa.OpInitialize, Err: errors.New("timeout")}}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 2,
	})
	require.Error(t, err)

	// Rows stay PENDING so a later manual verify can still settle them.
	require.Len(t, store.batches, 1)
	for _, batch := range store.batches {
		require.Len(t, batch, 2)
		for _, tk := range batch {
			assert.Equal(t, model.TicketPending, tk.Status)
		}
	}
}

func TestCreateOrderGatewayDeclined(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: &chapa.InitializeResponse{Status: "failed", Message: "bad key"}}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	var ce *chapa.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chapa.OpInitialize, ce.Op)
}

func TestConfirmPaymentIssuesOnceAndIsIdempotent(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	pub := &fakePublisher{}
	woken := 0
	svc := NewCheckoutService(store, gw, pub, func() { woken++ }, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "Abebe Kebede", Email: "abebe@example.com", Phone: "+251911000000", Quantity: 2,
	})
	require.NoError(t, err)

	gw.verifyRes = paidVerifyResponse(created.Reference)

	first, err := svc.ConfirmPayment(context.Background(), created.Reference)
	require.NoError(t, err)
	assert.True(t, first.Paid)
	assert.Equal(t, 2, first.Issued)
	require.Len(t, pub.events, 1)
	assert.Equal(t, created.Reference, pub.events[0].Reference)
	assert.Equal(t, 2, pub.events[0].Tickets)
	assert.Equal(t, 1, woken)

	// Tokens assigned by the transition, stable afterwards.
	tokens := map[string]bool{}
	for _, tk := range store.batches[created.Reference] {
		require.NotNil(t, tk.QRToken)
		tokens[*tk.QRToken] = true
	}
	assert.Len(t, tokens, 2, "distinct token per ticket")

	// Second delivery of the same notification: no re-issue, no event.
	second, err := svc.ConfirmPayment(context.Background(), created.Reference)
	require.NoError(t, err)
	assert.True(t, second.Paid)
	assert.Equal(t, 0, second.Issued)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, 1, woken)
}

func TestConfirmPaymentResolvesGatewayReference(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	require.NoError(t, err)
	gw.verifyRes = paidVerifyResponse(created.Reference)

	// The provider sometimes notifies with its own transaction id.
	res, err := svc.ConfirmPayment(context.Background(), "gw-1")
	require.NoError(t, err)
	assert.Equal(t, created.Reference, res.Reference)
	assert.Equal(t, 1, res.Issued)
	// Verification always uses our reference, not the provider's.
	assert.Equal(t, []string{created.Reference}, gw.verified)
}

func TestConfirmPaymentNotPaidLeavesBatchAlone(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	pub := &fakePublisher{}
	svc := NewCheckoutService(store, gw, pub, nil, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	require.NoError(t, err)

	notPaid := &chapa.VerifyResponse{Status: "success"}
	notPaid.Data.Status = "pending"
	gw.verifyRes = notPaid

	res, err := svc.ConfirmPayment(context.Background(), created.Reference)
	require.NoError(t, err)
	assert.False(t, res.Paid)
	assert.Empty(t, pub.events)
	for _, tk := range store.batches[created.Reference] {
		assert.Equal(t, model.TicketPending, tk.Status)
		assert.Nil(t, tk.QRToken)
	}
}

func TestConfirmPaymentVerifyErrorIsSurfaced(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	require.NoError(t, err)

	gw.verifyRes = nil
	gw.verifyErr = &chapa.Error{Op: chapa.OpVerify, Err: errors.New("connection refused")}

	_, err = svc.ConfirmPayment(context.Background(), created.Reference)
	require.Error(t, err)
	assert.True(t, chapa.IsVerification(err))
	// The batch is untouched; the caller retries later.
	for _, tk := range store.batches[created.Reference] {
		assert.Equal(t, model.TicketPending, tk.Status)
	}
}

func TestConfirmPaymentUnknownReference(t *testing.T) {
	svc := NewCheckoutService(newFakeStore(), &fakeGateway{}, nil, nil, "https://tickets.example")

	_, err := svc.ConfirmPayment(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, repository.ErrReferenceNotFound)
}

func TestConfirmPaymentPublishFailureDoesNotFailConfirmation(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewCheckoutService(store, gw, pub, nil, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	require.NoError(t, err)
	gw.verifyRes = paidVerifyResponse(created.Reference)

	res, err := svc.ConfirmPayment(context.Background(), created.Reference)
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Equal(t, 1, res.Issued)
}

func TestQRByToken(t *testing.T) {
	store := newFakeStore(regularType())
	gw := &fakeGateway{initRes: okInitResponse()}
	svc := NewCheckoutService(store, gw, nil, nil, "https://tickets.example")

	created, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TicketTypeID: 1, FullName: "A", Email: "a@b.c", Phone: "1", Quantity: 1,
	})
	require.NoError(t, err)
	gw.verifyRes = paidVerifyResponse(created.Reference)
	_, err = svc.ConfirmPayment(context.Background(), created.Reference)
	require.NoError(t, err)

	token := *store.batches[created.Reference][0].QRToken
	url, err := svc.QRByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Contains(t, url, "chart.googleapis.com")

	_, err = svc.QRByToken(context.Background(), "unknown")
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)

	_, err = svc.QRByToken(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
}
