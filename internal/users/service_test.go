package users

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/llopes04/fieldsync/internal/records"
)

type fakeCollection struct {
	list    []records.User
	loadErr error
	saveErr error
}

func (f *fakeCollection) Load(_ context.Context) ([]records.User, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	copied := make([]records.User, len(f.list))
	copy(copied, f.list)
	return copied, nil
}

func (f *fakeCollection) Save(_ context.Context, list []records.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.list = make([]records.User, len(list))
	copy(f.list, list)
	return nil
}

func newTestService(t *testing.T, collection *fakeCollection) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Users:      collection,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestRegisterAndAuthenticate(t *testing.T) {
	collection := &fakeCollection{}
	service := newTestService(t, collection)

	account, err := service.Register(context.Background(), "Carlos Souza", "carlos", "segredo123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.ID == "" {
		t.Fatalf("expected a generated account id")
	}
	if account.PasswordHash == "segredo123" {
		t.Fatalf("password must not be stored in plaintext")
	}
	if len(collection.list) != 1 {
		t.Fatalf("expected the account to be persisted, got %d", len(collection.list))
	}

	got, err := service.Authenticate(context.Background(), "carlos", "segredo123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != account.ID {
		t.Fatalf("expected the registered account, got %q", got.ID)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	collection := &fakeCollection{}
	service := newTestService(t, collection)

	if _, err := service.Register(context.Background(), "Carlos", "carlos", "segredo123"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := service.Register(context.Background(), "Other", "  CARLOS ", "segredo456")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if len(collection.list) != 1 {
		t.Fatalf("duplicate register must not persist, got %d accounts", len(collection.list))
	}
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	service := newTestService(t, &fakeCollection{})

	for _, password := range []string{"", "short1", "onlyletters", "12345678"} {
		if _, err := service.Register(context.Background(), "Carlos", "carlos", password); !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("password %q: expected ErrWeakPassword, got %v", password, err)
		}
	}
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	collection := &fakeCollection{}
	service := newTestService(t, collection)

	if _, err := service.Register(context.Background(), "Carlos", "carlos", "segredo123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "carlos", "wrong-pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "nobody", "segredo123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown username: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRejectsAccountWithoutHash(t *testing.T) {
	collection := &fakeCollection{list: []records.User{{ID: "1", Username: "legacy"}}}
	service := newTestService(t, collection)

	if _, err := service.Authenticate(context.Background(), "legacy", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNewServiceRequiresCollection(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatalf("expected an error without a collection")
	}
}

func TestRegisterSurfacesStorageErrors(t *testing.T) {
	collection := &fakeCollection{saveErr: fmt.Errorf("disk full")}
	service := newTestService(t, collection)

	if _, err := service.Register(context.Background(), "Carlos", "carlos", "segredo123"); err == nil {
		t.Fatalf("expected the save error to surface")
	}
}
