package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/llopes04/fieldsync/internal/records"
)

func TestDeleteTaggedRecordIssuesOneRemoteDelete(t *testing.T) {
	f := newTestFixture(t)
	f.clients.list = []records.Client{{ID: "remote:abc123", Name: "Acme"}}

	if err := f.engine.DeleteClient(context.Background(), "remote:abc123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.remoteClients.deleteCalls) != 1 {
		t.Fatalf("expected exactly one remote delete, got %d", len(f.remoteClients.deleteCalls))
	}
	if f.remoteClients.deleteCalls[0] != "abc123" {
		t.Fatalf("expected the untagged remote id, got %q", f.remoteClients.deleteCalls[0])
	}
	if len(f.clients.list) != 0 {
		t.Fatalf("expected the local record to be removed")
	}
}

func TestDeleteLocalOnlyRecordSkipsRemote(t *testing.T) {
	f := newTestFixture(t)
	f.clients.list = []records.Client{{ID: "1", Name: "Acme"}}

	if err := f.engine.DeleteClient(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.remoteClients.deleteCalls) != 0 {
		t.Fatalf("untagged deletes must not touch the remote store, got %d calls", len(f.remoteClients.deleteCalls))
	}
	if len(f.clients.list) != 0 {
		t.Fatalf("expected the local record to be removed")
	}
}

func TestDeleteKeepsLocalRecordWhenRemoteFails(t *testing.T) {
	f := newTestFixture(t)
	f.clients.list = []records.Client{{ID: "remote:abc123", Name: "Acme"}}
	f.remoteClients.deleteErr = contextError("permission denied")

	err := f.engine.DeleteClient(context.Background(), "remote:abc123")
	if err == nil {
		t.Fatalf("expected the remote failure to surface")
	}
	if len(f.clients.list) != 1 {
		t.Fatalf("local record must be kept when the remote delete fails")
	}
}

func TestDeleteUnknownRecord(t *testing.T) {
	f := newTestFixture(t)
	f.orders.list = []records.ServiceOrder{{ID: "1", Technician: "Ana"}}

	err := f.engine.DeleteOrder(context.Background(), "99")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if len(f.orders.list) != 1 {
		t.Fatalf("collection must be unchanged")
	}
}

func TestDeleteRTI(t *testing.T) {
	f := newTestFixture(t)
	f.rtis.list = []records.RTI{{ID: "remote:t1", Technician: "Marcos"}}

	if err := f.engine.DeleteRTI(context.Background(), "remote:t1"); err != nil {
		t.Fatalf("delete rti: %v", err)
	}
	if len(f.remoteRTIs.deleteCalls) != 1 || f.remoteRTIs.deleteCalls[0] != "t1" {
		t.Fatalf("unexpected remote calls: %#v", f.remoteRTIs.deleteCalls)
	}
	if len(f.rtis.list) != 0 {
		t.Fatalf("expected the report to be removed locally")
	}
}
