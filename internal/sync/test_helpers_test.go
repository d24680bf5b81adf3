package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/remote"
)

// fakeLocal is an in-memory LocalCollection.
type fakeLocal[T any] struct {
	list    []T
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeLocal[T]) Load(_ context.Context) ([]T, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	copied := make([]T, len(f.list))
	copy(copied, f.list)
	return copied, nil
}

func (f *fakeLocal[T]) Save(_ context.Context, list []T) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.list = make([]T, len(list))
	copy(f.list, list)
	return nil
}

// fakeRemote is an in-memory RemoteCollection with scriptable failures.
type fakeRemote struct {
	docs    []remote.Document
	nextID  int
	prefix  string
	created []map[string]any

	deleteCalls []string
	updateCalls []string

	getAllErr error
	createErr error
	updateErr error
	deleteErr error
	// failOnCreateCall fails the Nth create (1-based) when set.
	failOnCreateCall int
	createCalls      int
}

func newFakeRemote(prefix string, docs ...remote.Document) *fakeRemote {
	return &fakeRemote{prefix: prefix, docs: docs}
}

func (f *fakeRemote) Create(_ context.Context, fields map[string]any) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.failOnCreateCall > 0 && f.createCalls == f.failOnCreateCall {
		return "", fmt.Errorf("create rejected on call %d", f.createCalls)
	}
	f.nextID++
	id := fmt.Sprintf("%s%d", f.prefix, f.nextID)
	f.docs = append(f.docs, remote.Document{ID: id, Data: fields})
	f.created = append(f.created, fields)
	return id, nil
}

func (f *fakeRemote) GetAll(_ context.Context) ([]remote.Document, error) {
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	copied := make([]remote.Document, len(f.docs))
	copy(copied, f.docs)
	return copied, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, _ map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls = append(f.updateCalls, id)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleteCalls = append(f.deleteCalls, id)
	for i, doc := range f.docs {
		if doc.ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			break
		}
	}
	return nil
}

// fakeActionLog is an in-memory ActionLog.
type fakeActionLog struct {
	actions  []offline.Action
	drainErr error
	clearErr error
	cleared  bool
}

func (f *fakeActionLog) Drain(_ context.Context) ([]offline.Action, error) {
	if f.drainErr != nil {
		return nil, f.drainErr
	}
	copied := make([]offline.Action, len(f.actions))
	copy(copied, f.actions)
	return copied, nil
}

func (f *fakeActionLog) Clear(_ context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	f.actions = nil
	return nil
}

// testFixture bundles an engine with its fakes.
type testFixture struct {
	engine        *Engine
	clients       *fakeLocal[records.Client]
	orders        *fakeLocal[records.ServiceOrder]
	users         *fakeLocal[records.User]
	rtis          *fakeLocal[records.RTI]
	remoteClients *fakeRemote
	remoteOrders  *fakeRemote
	remoteUsers   *fakeRemote
	remoteRTIs    *fakeRemote
	offline       *fakeActionLog
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		clients:       &fakeLocal[records.Client]{},
		orders:        &fakeLocal[records.ServiceOrder]{},
		users:         &fakeLocal[records.User]{},
		rtis:          &fakeLocal[records.RTI]{},
		remoteClients: newFakeRemote("c"),
		remoteOrders:  newFakeRemote("o"),
		remoteUsers:   newFakeRemote("u"),
		remoteRTIs:    newFakeRemote("t"),
		offline:       &fakeActionLog{},
	}

	engine, err := NewEngine(Config{
		Clients:       f.clients,
		Orders:        f.orders,
		Users:         f.users,
		RTIs:          f.rtis,
		RemoteClients: f.remoteClients,
		RemoteOrders:  f.remoteOrders,
		RemoteUsers:   f.remoteUsers,
		RemoteRTIs:    f.remoteRTIs,
		Offline:       f.offline,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = engine
	return f
}

func clientDoc(id, name string) remote.Document {
	return remote.Document{ID: id, Data: map[string]any{"nome": name}}
}

func orderDoc(id, technician, date, clientID string, visits int) remote.Document {
	visitList := make([]any, 0, visits)
	for i := 0; i < visits; i++ {
		visitList = append(visitList, map[string]any{"gerador_id": fmt.Sprintf("g%d", i+1)})
	}
	return remote.Document{ID: id, Data: map[string]any{
		"tecnico":    technician,
		"data":       date,
		"cliente_id": clientID,
		"geradores":  visitList,
	}}
}

// contextError builds a distinguishable error for scripted failures.
func contextError(message string) error {
	return fmt.Errorf("%s", message)
}
