package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/repository"
)

type fakeExhibitorStore struct {
	ex       *model.Exhibitor
	provided string
	fallback string
	err      error
}

func (f *fakeExhibitorStore) RegisterApplication(ctx context.Context, ex *model.Exhibitor, providedHash, fallbackHash string) (uint64, uint64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.ex = ex
	f.provided = providedHash
	f.fallback = fallbackHash
	return 7, 12, nil
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		CompanyName:  "Acme Expo Ltd",
		ContactName:  "Sara Tesfaye",
		ContactEmail: "sara@acme.example",
		Phone:        "+251911000000",
	}
}

func TestRegisterStoresApplication(t *testing.T) {
	store := &fakeExhibitorStore{}
	svc := NewExhibitorService(store, nil, bcrypt.MinCost)

	res, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.ExhibitorID)
	assert.Equal(t, uint64(12), res.UserID)

	require.NotNil(t, store.ex)
	assert.Equal(t, "Acme Expo Ltd", store.ex.CompanyName)
	assert.Equal(t, "Ethiopia", store.ex.Country, "country defaults when omitted")
}

func TestRegisterHashesProvidedPassword(t *testing.T) {
	store := &fakeExhibitorStore{}
	svc := NewExhibitorService(store, nil, bcrypt.MinCost)

	in := validRegisterInput()
	in.Password = "chosen-by-user"
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.provided), []byte("chosen-by-user")))
	assert.Empty(t, store.fallback, "no generated credential when one was chosen")
}

func TestRegisterEmptyPasswordPreservesExistingHash(t *testing.T) {
	store := &fakeExhibitorStore{}
	svc := NewExhibitorService(store, nil, bcrypt.MinCost)

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	// An empty provided hash is what lets the store skip the password
	// update for an already linked account instead of overwriting it
	// with a credential nobody knows.
	assert.Empty(t, store.provided)
	assert.NotEmpty(t, store.fallback, "fresh accounts still need a generated credential")
	assert.True(t, len(store.fallback) > 50, "fallback must be a bcrypt hash, not the plain password")
}

func TestRegisterValidation(t *testing.T) {
	svc := NewExhibitorService(&fakeExhibitorStore{}, nil, bcrypt.MinCost)

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing company", func(in *RegisterInput) { in.CompanyName = " " }},
		{"missing contact", func(in *RegisterInput) { in.ContactName = "" }},
		{"bad email", func(in *RegisterInput) { in.ContactEmail = "not-an-email" }},
		{"missing phone", func(in *RegisterInput) { in.Phone = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegisterInput()
			tc.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := &fakeExhibitorStore{err: repository.ErrEmailTaken}
	svc := NewExhibitorService(store, nil, bcrypt.MinCost)

	_, err := svc.Register(context.Background(), validRegisterInput())
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestRegisterWakesDispatcher(t *testing.T) {
	woken := 0
	svc := NewExhibitorService(&fakeExhibitorStore{}, func() { woken++ }, bcrypt.MinCost)

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, 1, woken)
}
