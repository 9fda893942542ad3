package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/originexpo/ticketing/internal/repository"
	"github.com/originexpo/ticketing/internal/service"
)

// ExhibitorService is the slice of the service layer the exhibitor
// handler needs.  *service.ExhibitorService satisfies it.
type ExhibitorService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
}

// ExhibitorHandler serves public exhibitor applications.
type ExhibitorHandler struct {
	Service ExhibitorService
}

// NewExhibitorHandler constructs an ExhibitorHandler.
func NewExhibitorHandler(svc ExhibitorService) *ExhibitorHandler {
	if svc == nil {
		panic("nil service passed to NewExhibitorHandler")
	}
	return &ExhibitorHandler{Service: svc}
}

// registerRequest is the POST /v1/exhibitors/register body.
type registerRequest struct {
	CompanyName  string `json:"company_name" form:"company_name"`
	ContactName  string `json:"contact_name" form:"contact_name"`
	ContactEmail string `json:"contact_email" form:"contact_email"`
	Phone        string `json:"phone" form:"phone"`
	Country      string `json:"country" form:"country"`
	Password     string `json:"password" form:"password"`
	Notes        string `json:"notes" form:"notes"`
}

// Register handles POST /v1/exhibitors/register.  It stores the
// application with an inactive linked account and returns the new IDs.
// A receipt email is queued as part of the same transaction.
func (h *ExhibitorHandler) Register(c echo.Context) error {
	var body registerRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "invalid request body"})
	}
	res, err := h.Service.Register(c.Request().Context(), service.RegisterInput{
		CompanyName:  body.CompanyName,
		ContactName:  body.ContactName,
		ContactEmail: body.ContactEmail,
		Phone:        body.Phone,
		Country:      body.Country,
		Password:     body.Password,
		Notes:        body.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": err.Error()})
		case errors.Is(err, repository.ErrEmailTaken):
			return c.JSON(http.StatusConflict, echo.Map{"ok": false, "error": "an application with this email already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"ok": true,
		"data": echo.Map{
			"exhibitor_id": res.ExhibitorID,
			"user_id":      res.UserID,
		},
	})
}
