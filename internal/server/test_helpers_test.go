package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/llopes04/fieldsync/internal/auth"
	"github.com/llopes04/fieldsync/internal/database"
	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/remote"
	"github.com/llopes04/fieldsync/internal/store"
	"github.com/llopes04/fieldsync/internal/sync"
	"github.com/llopes04/fieldsync/internal/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRemote is an in-memory sync.RemoteCollection with scriptable
// failures.
type stubRemote struct {
	docs      []remote.Document
	nextID    int
	prefix    string
	createErr error
	deleteErr error
	getAllErr error
	updateErr error
}

func (s *stubRemote) Create(_ context.Context, fields map[string]any) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("%s%d", s.prefix, s.nextID)
	s.docs = append(s.docs, remote.Document{ID: id, Data: fields})
	return id, nil
}

func (s *stubRemote) GetAll(_ context.Context) ([]remote.Document, error) {
	if s.getAllErr != nil {
		return nil, s.getAllErr
	}
	copied := make([]remote.Document, len(s.docs))
	copy(copied, s.docs)
	return copied, nil
}

func (s *stubRemote) Update(_ context.Context, id string, fields map[string]any) error {
	return s.updateErr
}

func (s *stubRemote) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i, doc := range s.docs {
		if doc.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			break
		}
	}
	return nil
}

type routerFixture struct {
	handler http.Handler
	store   *store.Store
	log     *offline.Log

	remoteClients *stubRemote
	remoteOrders  *stubRemote
	remoteUsers   *stubRemote
	remoteRTIs    *stubRemote
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	dir := t.TempDir()
	recordsDB, err := database.OpenSQLite(filepath.Join(dir, "records.db"), nil, store.Migrations()...)
	if err != nil {
		t.Fatalf("open records database: %v", err)
	}
	offlineDB, err := database.OpenSQLite(filepath.Join(dir, "offline.db"), nil, offline.Migrations()...)
	if err != nil {
		t.Fatalf("open offline database: %v", err)
	}

	st, err := store.New(store.Config{Database: recordsDB})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	log, err := offline.NewLog(offline.Config{Database: offlineDB})
	if err != nil {
		t.Fatalf("new offline log: %v", err)
	}

	f := &routerFixture{
		store:         st,
		log:           log,
		remoteClients: &stubRemote{prefix: "c"},
		remoteOrders:  &stubRemote{prefix: "o"},
		remoteUsers:   &stubRemote{prefix: "u"},
		remoteRTIs:    &stubRemote{prefix: "t"},
	}

	engine, err := sync.NewEngine(sync.Config{
		Clients:       st.Clients,
		Orders:        st.Orders,
		Users:         st.Users,
		RTIs:          st.RTIs,
		RemoteClients: f.remoteClients,
		RemoteOrders:  f.remoteOrders,
		RemoteUsers:   f.remoteUsers,
		RemoteRTIs:    f.remoteRTIs,
		Offline:       log,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	accounts, err := users.NewService(users.ServiceConfig{Users: st.Users, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("new account service: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "fieldsync-auth",
		Audience:      "fieldsync-api",
	})
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Accounts: accounts,
		Tokens:   tokens,
		Engine:   engine,
		Store:    st,
		Offline:  log,
	})
	if err != nil {
		t.Fatalf("new http handler: %v", err)
	}
	f.handler = handler
	return f
}

func (f *routerFixture) request(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode request payload: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

// login registers an account and returns a valid session token.
func (f *routerFixture) login(t *testing.T) string {
	t.Helper()
	register := f.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"nome":    "Carlos Souza",
		"usuario": "carlos",
		"senha":   "segredo123",
	})
	if register.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", register.Code, register.Body.String())
	}

	login := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"usuario": "carlos",
		"senha":   "segredo123",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", login.Code, login.Body.String())
	}
	var session sessionPayload
	if err := json.Unmarshal(login.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return session.AccessToken
}

func clientDocument(id, name string) remote.Document {
	return remote.Document{ID: id, Data: map[string]any{"nome": name}}
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return decoded
}
