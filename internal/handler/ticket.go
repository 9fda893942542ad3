// Package handler exposes the public HTTP surface: ticket checkout,
// payment reconciliation (webhook and manual verify), QR lookup,
// ticket-type listing and exhibitor registration. Every route is
// unauthenticated; abuse is contained by the rate-limit middleware.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/originexpo/ticketing/internal/chapa"
	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/repository"
	"github.com/originexpo/ticketing/internal/service"
)

// TicketService is the slice of the service layer the ticket handlers
// need.  *service.CheckoutService satisfies it; tests supply fakes.
type TicketService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*service.CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, ref string) (*service.ConfirmResult, error)
	TicketTypes(ctx context.Context) ([]model.TicketType, error)
	QRByToken(ctx context.Context, token string) (string, error)
}

// TicketHandler serves the ticket purchase lifecycle.
type TicketHandler struct {
	Service TicketService
}

// NewTicketHandler constructs a TicketHandler.  The service must be
// non-nil.
func NewTicketHandler(svc TicketService) *TicketHandler {
	if svc == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Service: svc}
}

// checkoutRequest is the POST /v1/tickets/checkout body.  Quantity is a
// pointer so an omitted field defaults to 1 while an explicit 0 is
// rejected downstream as invalid.
type checkoutRequest struct {
	TicketTypeID uint64 `json:"ticket_type_id" form:"ticket_type_id"`
	FullName     string `json:"full_name" form:"full_name"`
	Email        string `json:"email" form:"email"`
	Phone        string `json:"phone" form:"phone"`
	Quantity     *int   `json:"quantity" form:"quantity"`
}

// Checkout handles POST /v1/tickets/checkout.  It creates the PENDING
// ticket batch, initializes the hosted payment and returns the redirect
// URL together with the batch reference.
func (h *TicketHandler) Checkout(c echo.Context) error {
	var body checkoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	quantity := 1
	if body.Quantity != nil {
		quantity = *body.Quantity
	}
	res, err := h.Service.CreateOrder(c.Request().Context(), service.CreateOrderInput{
		TicketTypeID: body.TicketTypeID,
		FullName:     body.FullName,
		Email:        body.Email,
		Phone:        body.Phone,
		Quantity:     quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": err.Error()})
		case errors.Is(err, repository.ErrTicketTypeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"ok": false, "error": "ticket type not found"})
		case isGatewayError(err):
			return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "payment provider unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":           true,
		"reference":    res.Reference,
		"checkout_url": res.CheckoutURL,
	})
}

// webhookRequest covers the payload shapes the provider is known to
// send: the reference may arrive at the top level under several names
// or nested under "data".
type webhookRequest struct {
	Reference string `json:"reference" form:"reference"`
	TxRef     string `json:"tx_ref" form:"tx_ref"`
	TrxRef    string `json:"trx_ref" form:"trx_ref"`
	Data      struct {
		Reference string `json:"reference"`
		TxRef     string `json:"tx_ref"`
	} `json:"data"`
}

// ref returns the first non-empty reference candidate.
func (r webhookRequest) ref() string {
	for _, v := range []string{r.TxRef, r.TrxRef, r.Reference, r.Data.TxRef, r.Data.Reference} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Webhook handles POST /v1/tickets/webhook.  The pushed payload is used
// only to locate the reference; the claimed status is ignored and the
// payment is re-verified with the provider before any state changes.
// Returns 200 once the notification is fully processed (paid or not),
// 400 when no reference can be extracted, and 502 when the verify call
// fails so the provider retries the delivery.
func (h *TicketHandler) Webhook(c echo.Context) error {
	var body webhookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	ref := body.ref()
	if ref == "" {
		// Some providers deliver form-encoded retries; Bind already
		// handled those, so a missing reference is a malformed event.
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "missing transaction reference"})
	}
	return h.confirm(c, ref)
}

// Verify handles GET and POST /v1/tickets/verify.  It runs the same
// reconciliation as the webhook, for buyers returning from the hosted
// payment page or support staff reconciling manually.
func (h *TicketHandler) Verify(c echo.Context) error {
	ref := c.QueryParam("reference")
	if ref == "" {
		ref = c.FormValue("reference")
	}
	if strings.TrimSpace(ref) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "reference is required"})
	}
	return h.confirm(c, ref)
}

// confirm runs reconciliation for one reference and writes the shared
// response shape for the webhook and verify routes.
func (h *TicketHandler) confirm(c echo.Context, ref string) error {
	res, err := h.Service.ConfirmPayment(c.Request().Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": err.Error()})
		case errors.Is(err, repository.ErrReferenceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"ok": false, "error": "unknown reference"})
		case chapa.IsVerification(err):
			return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "verification unavailable, retry later"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "internal error"})
		}
	}
	if !res.Paid {
		return c.JSON(http.StatusOK, echo.Map{
			"ok":        false,
			"reference": res.Reference,
			"message":   "payment not successful",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":        true,
		"reference": res.Reference,
		"issued":    res.Issued,
	})
}

// QR handles GET /v1/tickets/qr.  It resolves a ticket's entry token to
// the image URL that renders its QR code.
func (h *TicketHandler) QR(c echo.Context) error {
	url, err := h.Service.QRByToken(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": err.Error()})
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"ok": false, "error": "ticket not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "qr_url": url})
}

// ticketTypeResponse is one GET /v1/ticket-types item.  The Amount is
// rendered as a string to keep decimal precision for clients.
type ticketTypeResponse struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// ListTicketTypes handles GET /v1/ticket-types.  The route sits behind
// the response-cache middleware since the listing changes rarely.
func (h *TicketHandler) ListTicketTypes(c echo.Context) error {
	types, err := h.Service.TicketTypes(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "database error"})
	}
	out := make([]ticketTypeResponse, 0, len(types))
	for _, tt := range types {
		out = append(out, ticketTypeResponse{
			ID:          tt.ID,
			Name:        tt.Name,
			Price:       tt.Price.String(),
			Currency:    tt.Currency,
			Description: tt.Description,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// isGatewayError reports whether err originated in the payment
// provider client.
func isGatewayError(err error) bool {
	var ce *chapa.Error
	return errors.As(err, &ce)
}
