package service

import (
	"context"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/originexpo/ticketing/internal/chapa"
	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/monitoring"
	"github.com/originexpo/ticketing/internal/queue"
	"github.com/originexpo/ticketing/internal/utils"
)

// OrderStore is the persistence port for ticket batches.  It is
// implemented by repository.TicketRepo together with
// repository.TicketTypeRepo; tests supply fakes.
type OrderStore interface {
	TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context) ([]model.TicketType, error)
	CreateBatch(ctx context.Context, tickets []*model.Ticket) error
	SetGatewayRef(ctx context.Context, reference, gatewayRef string) error
	ResolveReference(ctx context.Context, ref string) (string, error)
	ConfirmPaid(ctx context.Context, reference, gatewayRef string) ([]model.Ticket, error)
	GetByQRToken(ctx context.Context, token string) (*model.Ticket, error)
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Gateway is the payment provider port, implemented by chapa.Client.
type Gateway interface {
	Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*chapa.VerifyResponse, error)
}

// EventPublisher announces issued tickets to interested consumers.
// Publishing is best effort and never fails a confirmed payment.
type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error
}

// CheckoutService drives the ticket purchase lifecycle: order creation,
// payment reconciliation and QR lookup.
type CheckoutService struct {
	store     OrderStore
	gateway   Gateway
	publisher EventPublisher // optional
	wake      func()         // optional, nudges the outbox dispatcher
	baseURL   string         // public base URL for callback/return links
}

// NewCheckoutService wires the checkout flow.  publisher and wake may
// be nil; baseURL must be the externally reachable root of this
// service, without a trailing slash.
func NewCheckoutService(store OrderStore, gateway Gateway, publisher EventPublisher, wake func(), baseURL string) *CheckoutService {
	return &CheckoutService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		wake:      wake,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// CreateOrderInput carries a checkout request.  Quantity must be at
// least 1; handlers default an omitted quantity before calling.
type CreateOrderInput struct {
	TicketTypeID uint64
	FullName     string
	Email        string
	Phone        string
	Quantity     int
}

// CreateOrderResult is returned on successful checkout creation.
type CreateOrderResult struct {
	Reference   string
	CheckoutURL string
}

// CreateOrder validates the request, atomically persists one PENDING
// ticket per unit, initializes the hosted payment and returns the
// checkout URL.  When the gateway call fails the PENDING rows are kept
// so the batch stays recoverable through manual verification.
func (s *CheckoutService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if in.TicketTypeID == 0 {
		return nil, invalidf("ticket_type_id is required")
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" {
		return nil, invalidf("full_name is required")
	}
	if in.Phone == "" {
		return nil, invalidf("phone is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalidf("invalid email address")
	}
	if in.Quantity < 1 {
		return nil, invalidf("quantity must be at least 1")
	}

	tt, err := s.store.TicketTypeByID(ctx, in.TicketTypeID)
	if err != nil {
		return nil, err
	}

	reference, err := utils.NewReference()
	if err != nil {
		return nil, err
	}

	batch := make([]*model.Ticket, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		batch = append(batch, &model.Ticket{
			TicketTypeID: tt.ID,
			FullName:     in.FullName,
			Email:        in.Email,
			Phone:        in.Phone,
			Status:       model.TicketPending,
			Amount:       tt.Price,
			Reference:    reference,
		})
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		monitoring.CheckoutCreated("store_error")
		return nil, err
	}

	total := tt.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
	init, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      total,
		Currency:    tt.Currency,
		Email:       in.Email,
		FirstName:   in.FullName,
		TxRef:       reference,
		CallbackURL: s.baseURL + "/v1/tickets/webhook",
		ReturnURL:   s.baseURL + "/tickets?status=redirect&reference=" + url.QueryEscape(reference),
		Meta:        map[string]any{"reference": reference, "quantity": in.Quantity},
	})
	if err != nil {
		// PENDING rows stay behind for manual reconciliation.
		log.Printf("checkout: ref=%s gateway initialize failed: %v", reference, err)
		monitoring.CheckoutCreated("gateway_error")
		return nil, err
	}
	if !init.OK() {
		log.Printf("checkout: ref=%s gateway declined: status=%s message=%s", reference, init.Status, init.Message)
		monitoring.CheckoutCreated("gateway_declined")
		return nil, &chapa.Error{Op: chapa.OpInitialize, Message: "failed to initialize payment"}
	}
	if init.Data.ID != "" {
		if err := s.store.SetGatewayRef(ctx, reference, init.Data.ID); err != nil {
			log.Printf("checkout: ref=%s failed to store gateway ref: %v", reference, err)
			return nil, err
		}
	}

	monitoring.CheckoutCreated("ok")
	return &CreateOrderResult{Reference: reference, CheckoutURL: init.Data.CheckoutURL}, nil
}

// ConfirmResult is the outcome of a reconciliation attempt.  Paid false
// is a legitimate business outcome, not an error: the transaction was
// verified and is simply not settled.  Issued is the number of tickets
// transitioned by this call; zero with Paid true means the batch was
// already PAID and nothing was re-issued.
type ConfirmResult struct {
	Reference string
	Paid      bool
	Issued    int
	Data      *chapa.VerifyData
}

// ConfirmPayment is the single idempotent reconciliation procedure
// shared by the webhook and manual verify paths.  The claimed status of
// a webhook payload is never trusted; the gateway's verify endpoint is
// the only ground truth.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, ref string) (*ConfirmResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, invalidf("reference is required")
	}

	reference, err := s.store.ResolveReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		// Surfaced, not swallowed: callers must retry later rather
		// than treat this as "payment failed".
		log.Printf("confirm: ref=%s verify call failed: %v", reference, err)
		monitoring.PaymentConfirmed("verify_error")
		return nil, err
	}
	if !v.Paid() {
		monitoring.PaymentConfirmed("not_paid")
		return &ConfirmResult{Reference: reference, Paid: false, Data: &v.Data}, nil
	}

	gatewayRef := v.GatewayRef()
	if gatewayRef == "" {
		gatewayRef = reference
	}
	issued, err := s.store.ConfirmPaid(ctx, reference, gatewayRef)
	if err != nil {
		log.Printf("confirm: ref=%s paid transition failed: %v", reference, err)
		return nil, err
	}
	if len(issued) == 0 {
		// Second delivery of the same webhook, or a concurrent caller
		// won the transition.  Nothing to issue.
		monitoring.PaymentConfirmed("duplicate")
		return &ConfirmResult{Reference: reference, Paid: true, Issued: 0, Data: &v.Data}, nil
	}

	log.Printf("confirm: ref=%s paid, issued %d ticket(s)", reference, len(issued))
	monitoring.PaymentConfirmed("paid")

	if s.publisher != nil {
		ev := queue.TicketIssuedEvent{
			Reference:  reference,
			GatewayRef: gatewayRef,
			Tickets:    len(issued),
			Buyer:      issued[0].FullName,
			Email:      issued[0].Email,
			IssuedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishTicketIssued(ctx, ev); err != nil {
			log.Printf("confirm: ref=%s publish ticket.issued failed: %v", reference, err)
		}
	}
	if s.wake != nil {
		s.wake()
	}
	return &ConfirmResult{Reference: reference, Paid: true, Issued: len(issued), Data: &v.Data}, nil
}

// TicketTypes returns the purchasable reference data.
func (s *CheckoutService) TicketTypes(ctx context.Context) ([]model.TicketType, error) {
	return s.store.ListTicketTypes(ctx)
}

// QRByToken resolves a redeemable credential to the image URL that
// renders it.  Unknown tokens return repository.ErrTicketNotFound.
func (s *CheckoutService) QRByToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", invalidf("token is required")
	}
	if _, err := s.store.GetByQRToken(ctx, token); err != nil {
		return "", err
	}
	return utils.QRImageURL(token, 300), nil
}

// ExpireAbandoned marks stale PENDING batches as ABANDONED.  Called by
// the scheduler.
func (s *CheckoutService) ExpireAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.ExpireStale(ctx, olderThan)
}
