package service

import (
	"context"
	"log"
	"net/mail"
	"strings"

	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/utils"
)

// ExhibitorStore is the persistence port for exhibitor applications,
// implemented by repository.ExhibitorRepo.  providedHash is the hash of
// a password the applicant chose and is empty when none was given;
// fallbackHash is a generated credential used only when a fresh user
// row must be created without a chosen password.
type ExhibitorStore interface {
	RegisterApplication(ctx context.Context, ex *model.Exhibitor, providedHash, fallbackHash string) (exhibitorID, userID uint64, err error)
}

// ExhibitorService handles public exhibitor applications.  Approval
// happens elsewhere; this service only takes the application in.
type ExhibitorService struct {
	store      ExhibitorStore
	wake       func() // optional, nudges the outbox dispatcher
	bcryptCost int
}

// NewExhibitorService wires the exhibitor registration flow.
func NewExhibitorService(store ExhibitorStore, wake func(), bcryptCost int) *ExhibitorService {
	return &ExhibitorService{store: store, wake: wake, bcryptCost: bcryptCost}
}

// RegisterInput carries a public exhibitor application.
type RegisterInput struct {
	CompanyName  string
	ContactName  string
	ContactEmail string
	Phone        string
	Country      string
	Password     string // optional; generated when empty
	Notes        string
}

// RegisterResult identifies the stored application and its linked user.
type RegisterResult struct {
	ExhibitorID uint64
	UserID      uint64
}

// Register validates and stores an application.  The created user is
// inactive and must change its password; the password is never sent at
// registration time, only a receipt.  When the applicant supplies no
// password an existing linked account keeps its current hash; a
// generated credential is only ever used for a freshly created one.
func (s *ExhibitorService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Country = strings.TrimSpace(in.Country)
	if in.Country == "" {
		in.Country = "Ethiopia"
	}
	if in.CompanyName == "" {
		return nil, invalidf("company_name is required")
	}
	if in.ContactName == "" {
		return nil, invalidf("contact_name is required")
	}
	if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
		return nil, invalidf("invalid contact_email")
	}
	if in.Phone == "" {
		return nil, invalidf("phone is required")
	}

	providedHash := ""
	if in.Password != "" {
		h, err := utils.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		providedHash = h
	}
	fallbackHash := ""
	if providedHash == "" {
		password, err := utils.GeneratePassword(12)
		if err != nil {
			return nil, err
		}
		fallbackHash, err = utils.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
	}

	ex := &model.Exhibitor{
		CompanyName:  in.CompanyName,
		Country:      in.Country,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		Phone:        in.Phone,
		Notes:        strings.TrimSpace(in.Notes),
	}
	exhibitorID, userID, err := s.store.RegisterApplication(ctx, ex, providedHash, fallbackHash)
	if err != nil {
		return nil, err
	}

	log.Printf("exhibitor: application %d stored for %s (user %d)", exhibitorID, in.ContactEmail, userID)
	if s.wake != nil {
		s.wake()
	}
	return &RegisterResult{ExhibitorID: exhibitorID, UserID: userID}, nil
}
