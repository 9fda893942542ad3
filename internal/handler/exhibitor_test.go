package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/originexpo/ticketing/internal/repository"
	"github.com/originexpo/ticketing/internal/service"
)

type fakeExhibitorService struct {
	res *service.RegisterResult
	err error
	in  service.RegisterInput
}

func (f *fakeExhibitorService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	f.in = in
	return f.res, f.err
}

func TestRegisterExhibitorSuccess(t *testing.T) {
	svc := &fakeExhibitorService{res: &service.RegisterResult{ExhibitorID: 7, UserID: 12}}
	h := NewExhibitorHandler(svc)

	rec := doJSON(t, h.Register, http.MethodPost, "/v1/exhibitors/register",
		`{"company_name":"Acme Expo Ltd","contact_name":"Sara Tesfaye","contact_email":"sara@acme.example","phone":"+251911000000"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exhibitor_id":7`)
	assert.Contains(t, rec.Body.String(), `"user_id":12`)
	assert.Equal(t, "Acme Expo Ltd", svc.in.CompanyName)
}

func TestRegisterExhibitorValidationError(t *testing.T) {
	svc := &fakeExhibitorService{err: service.ErrValidation}
	h := NewExhibitorHandler(svc)

	rec := doJSON(t, h.Register, http.MethodPost, "/v1/exhibitors/register", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterExhibitorDuplicateEmail(t *testing.T) {
	svc := &fakeExhibitorService{err: repository.ErrEmailTaken}
	h := NewExhibitorHandler(svc)

	rec := doJSON(t, h.Register, http.MethodPost, "/v1/exhibitors/register",
		`{"company_name":"Acme","contact_name":"S","contact_email":"sara@acme.example","phone":"1"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
