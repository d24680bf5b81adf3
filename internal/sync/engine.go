// Package sync implements the reconciliation between the local record
// store and the remote document store: upload of local-only records,
// destructive and merging downloads, the deletion protocol, and replay
// of the offline action queue.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/llopes04/fieldsync/internal/offline"
	"github.com/llopes04/fieldsync/internal/records"
	"github.com/llopes04/fieldsync/internal/remote"
	"go.uber.org/zap"
)

var (
	errMissingLocalStore  = errors.New("local collections are required")
	errMissingRemoteStore = errors.New("remote collections are required")
	errPassInFlight       = errors.New("another sync pass is already running")
)

const (
	opUpload   = "sync.upload"
	opDownload = "sync.download_replace"
	opMerge    = "sync.merge_from_remote"
	opReplay   = "sync.replay_offline"
	opDelete   = "sync.delete"
)

// LocalCollection is the durable local cache contract for one entity
// type: whole-collection load and atomic whole-collection replace.
type LocalCollection[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, list []T) error
}

// RemoteCollection is the network-backed document collection contract.
type RemoteCollection interface {
	Create(ctx context.Context, fields map[string]any) (string, error)
	GetAll(ctx context.Context) ([]remote.Document, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// ActionLog is the offline queue contract consumed during replay.
type ActionLog interface {
	Drain(ctx context.Context) ([]offline.Action, error)
	Clear(ctx context.Context) error
}

// Result is the structured outcome of one reconciliation pass. The
// engine never lets an error escape its boundary; every failure ends
// here with Success false and a human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Config describes the collaborators of the reconciliation engine.
type Config struct {
	Clients LocalCollection[records.Client]
	Orders  LocalCollection[records.ServiceOrder]
	Users   LocalCollection[records.User]
	RTIs    LocalCollection[records.RTI]

	RemoteClients RemoteCollection
	RemoteOrders  RemoteCollection
	RemoteUsers   RemoteCollection
	RemoteRTIs    RemoteCollection

	Offline ActionLog
	Policy  records.MatchPolicy
	Logger  *zap.Logger
}

// Engine reconciles the two stores. At most one pass runs at a time;
// the in-flight guard exists because the load-mutate-save pattern on
// whole collections is last-save-wins under overlap.
type Engine struct {
	clients LocalCollection[records.Client]
	orders  LocalCollection[records.ServiceOrder]
	users   LocalCollection[records.User]
	rtis    LocalCollection[records.RTI]

	remoteClients RemoteCollection
	remoteOrders  RemoteCollection
	remoteUsers   RemoteCollection
	remoteRTIs    RemoteCollection

	offline  ActionLog
	policy   records.MatchPolicy
	logger   *zap.Logger
	inFlight atomic.Bool
}

// NewEngine validates the collaborators and constructs the engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Clients == nil || cfg.Orders == nil || cfg.Users == nil {
		return nil, errMissingLocalStore
	}
	if cfg.RemoteClients == nil || cfg.RemoteOrders == nil || cfg.RemoteUsers == nil {
		return nil, errMissingRemoteStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := cfg.Policy
	if len(policy.Fields) == 0 {
		policy = records.DefaultMatchPolicy()
	}
	return &Engine{
		clients:       cfg.Clients,
		orders:        cfg.Orders,
		users:         cfg.Users,
		rtis:          cfg.RTIs,
		remoteClients: cfg.RemoteClients,
		remoteOrders:  cfg.RemoteOrders,
		remoteUsers:   cfg.RemoteUsers,
		remoteRTIs:    cfg.RemoteRTIs,
		offline:       cfg.Offline,
		policy:        policy,
		logger:        logger,
	}, nil
}

// begin acquires the in-flight guard. The runtime is cooperative, so a
// boolean token is enough; this is serialization, not mutual exclusion.
func (e *Engine) begin(operation string) bool {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Warn("sync pass rejected", zap.String("operation", operation), zap.Error(errPassInFlight))
		return false
	}
	return true
}

func (e *Engine) end() {
	e.inFlight.Store(false)
}

func (e *Engine) fail(operation, reason string, err error) Result {
	e.logger.Error("sync pass failed",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
	return Result{Success: false, Message: err.Error()}
}

// uploadOutcome tallies one entity type inside an upload pass.
type uploadOutcome struct {
	created int
	linked  int
}

func (o uploadOutcome) summary(name string) string {
	return fmt.Sprintf("%s: %d created, %d linked", name, o.created, o.linked)
}

// uploadKind pushes the untagged records of one collection. Records
// whose natural key already exists remotely are linked in place; the
// rest are created and tagged with the server-assigned id. The rewritten
// list is persisted even when a remote call fails mid-loop, so partial
// progress is kept; the error is returned for the caller to surface.
func uploadKind[T any](
	ctx context.Context,
	local LocalCollection[T],
	remoteCollection RemoteCollection,
	lookup map[string]string,
	naturalKey func(T) string,
	recordID func(T) string,
	tag func(*T, string),
) (uploadOutcome, error) {
	list, err := local.Load(ctx)
	if err != nil {
		return uploadOutcome{}, err
	}

	var outcome uploadOutcome
	var uploadErr error
	for i := range list {
		if records.IsTagged(recordID(list[i])) {
			continue
		}
		key := naturalKey(list[i])
		if remoteID, ok := lookup[key]; ok {
			tag(&list[i], records.TagRemote(remoteID))
			outcome.linked++
			continue
		}

		fields, err := records.ToDocument(list[i])
		if err != nil {
			uploadErr = err
			break
		}
		newID, err := remoteCollection.Create(ctx, fields)
		if err != nil {
			uploadErr = err
			break
		}
		tag(&list[i], records.TagRemote(newID))
		// Later records with the same key link here instead of
		// creating a duplicate document.
		lookup[key] = newID
		outcome.created++
	}

	if saveErr := local.Save(ctx, list); saveErr != nil && uploadErr == nil {
		uploadErr = saveErr
	}
	return outcome, uploadErr
}

// Upload pushes local-only records to the remote store without
// overwriting anything remote. Idempotent: a second pass over stable
// inputs finds every record tagged and creates nothing.
func (e *Engine) Upload(ctx context.Context) Result {
	if !e.begin(opUpload) {
		return Result{Success: false, Message: errPassInFlight.Error()}
	}
	defer e.end()

	clientDocs, err := e.remoteClients.GetAll(ctx)
	if err != nil {
		return e.fail(opUpload, "fetch_remote_clients", err)
	}
	orderDocs, err := e.remoteOrders.GetAll(ctx)
	if err != nil {
		return e.fail(opUpload, "fetch_remote_orders", err)
	}
	// The users collection may not exist yet on a fresh project; an
	// empty lookup just means every local user uploads as new.
	userDocs, err := e.remoteUsers.GetAll(ctx)
	if err != nil {
		e.logger.Warn("remote users unavailable, continuing without lookup",
			zap.String("operation", opUpload), zap.Error(err))
		userDocs = nil
	}

	clientLookup := make(map[string]string, len(clientDocs))
	for _, doc := range clientDocs {
		client, err := records.ClientFromDocument(doc.ID, doc.Data)
		if err != nil {
			e.logger.Warn("skipping malformed remote client", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		clientLookup[records.ClientKey(client.Name)] = doc.ID
	}
	orderLookup := make(map[string]string, len(orderDocs))
	for _, doc := range orderDocs {
		order, err := records.OrderFromDocument(doc.ID, doc.Data)
		if err != nil {
			e.logger.Warn("skipping malformed remote order", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		orderLookup[e.policy.OrderKey(order)] = doc.ID
	}
	userLookup := make(map[string]string, len(userDocs))
	for _, doc := range userDocs {
		user, err := records.UserFromDocument(doc.ID, doc.Data)
		if err != nil {
			e.logger.Warn("skipping malformed remote user", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		userLookup[records.UserKey(user.Username)] = doc.ID
	}

	clientOutcome, err := uploadKind(ctx, e.clients, e.remoteClients, clientLookup,
		func(c records.Client) string { return records.ClientKey(c.Name) },
		func(c records.Client) string { return c.ID },
		func(c *records.Client, id string) { c.ID = id })
	if err != nil {
		return e.fail(opUpload, "upload_clients", err)
	}

	orderOutcome, err := uploadKind(ctx, e.orders, e.remoteOrders, orderLookup,
		func(o records.ServiceOrder) string { return e.policy.OrderKey(o) },
		func(o records.ServiceOrder) string { return o.ID },
		func(o *records.ServiceOrder, id string) { o.ID = id })
	if err != nil {
		return e.fail(opUpload, "upload_orders", err)
	}

	userOutcome, err := uploadKind(ctx, e.users, e.remoteUsers, userLookup,
		func(u records.User) string { return records.UserKey(u.Username) },
		func(u records.User) string { return u.ID },
		func(u *records.User, id string) { u.ID = id })
	if err != nil {
		return e.fail(opUpload, "upload_users", err)
	}

	message := fmt.Sprintf("Sync complete! %s", strings.Join([]string{
		clientOutcome.summary("clients"),
		orderOutcome.summary("orders"),
		userOutcome.summary("users"),
	}, " · "))
	e.logger.Info("upload pass finished",
		zap.String("operation", opUpload),
		zap.Int("clients_created", clientOutcome.created),
		zap.Int("clients_linked", clientOutcome.linked),
		zap.Int("orders_created", orderOutcome.created),
		zap.Int("orders_linked", orderOutcome.linked),
		zap.Int("users_created", userOutcome.created),
		zap.Int("users_linked", userOutcome.linked))
	return Result{Success: true, Message: message}
}

// fetchClients pulls and normalizes the remote client collection,
// tagging every identifier with its remote document id.
func (e *Engine) fetchClients(ctx context.Context) ([]records.Client, error) {
	docs, err := e.remoteClients.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	clients := make([]records.Client, 0, len(docs))
	for _, doc := range docs {
		client, err := records.ClientFromDocument(doc.ID, doc.Data)
		if err != nil {
			e.logger.Warn("skipping malformed remote client", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		client.ID = records.TagRemote(doc.ID)
		clients = append(clients, client)
	}
	return clients, nil
}

func (e *Engine) fetchOrders(ctx context.Context) ([]records.ServiceOrder, error) {
	docs, err := e.remoteOrders.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	orders := make([]records.ServiceOrder, 0, len(docs))
	for _, doc := range docs {
		order, err := records.OrderFromDocument(doc.ID, doc.Data)
		if err != nil {
			e.logger.Warn("skipping malformed remote order", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		order.ID = records.TagRemote(doc.ID)
		orders = append(orders, order)
	}
	return orders, nil
}

// DownloadReplace overwrites the local client and order collections
// with exactly what the remote store returns. Local-only records that
// were never uploaded are discarded; the caller's UI copy must say so.
func (e *Engine) DownloadReplace(ctx context.Context) Result {
	if !e.begin(opDownload) {
		return Result{Success: false, Message: errPassInFlight.Error()}
	}
	defer e.end()

	clients, err := e.fetchClients(ctx)
	if err != nil {
		return e.fail(opDownload, "fetch_remote_clients", err)
	}
	orders, err := e.fetchOrders(ctx)
	if err != nil {
		return e.fail(opDownload, "fetch_remote_orders", err)
	}

	if err := e.clients.Save(ctx, clients); err != nil {
		return e.fail(opDownload, "save_clients", err)
	}
	if err := e.orders.Save(ctx, orders); err != nil {
		return e.fail(opDownload, "save_orders", err)
	}

	message := fmt.Sprintf("Remote data loaded! %d clients and %d service orders; local-only records were discarded.",
		len(clients), len(orders))
	e.logger.Info("download pass finished",
		zap.String("operation", opDownload),
		zap.Int("clients", len(clients)),
		zap.Int("orders", len(orders)))
	return Result{Success: true, Message: message}
}

// MergeFromRemote is the non-destructive pull: the merged result is the
// remote collection plus every local record no remote record matches.
// Identifiers of kept local records are left untouched, even when a
// remote twin exists under a different id.
func (e *Engine) MergeFromRemote(ctx context.Context) Result {
	if !e.begin(opMerge) {
		return Result{Success: false, Message: errPassInFlight.Error()}
	}
	defer e.end()

	remoteClients, err := e.fetchClients(ctx)
	if err != nil {
		return e.fail(opMerge, "fetch_remote_clients", err)
	}
	localClients, err := e.clients.Load(ctx)
	if err != nil {
		return e.fail(opMerge, "load_local_clients", err)
	}

	clientKeys := make(map[string]struct{}, len(remoteClients))
	for _, client := range remoteClients {
		clientKeys[records.ClientKey(client.Name)] = struct{}{}
	}
	mergedClients := remoteClients
	addedClients := 0
	for _, client := range localClients {
		if _, ok := clientKeys[records.ClientKey(client.Name)]; ok {
			continue
		}
		mergedClients = append(mergedClients, client)
		addedClients++
	}
	if err := e.clients.Save(ctx, mergedClients); err != nil {
		return e.fail(opMerge, "save_clients", err)
	}

	remoteOrders, err := e.fetchOrders(ctx)
	if err != nil {
		return e.fail(opMerge, "fetch_remote_orders", err)
	}
	localOrders, err := e.orders.Load(ctx)
	if err != nil {
		return e.fail(opMerge, "load_local_orders", err)
	}

	orderKeys := make(map[string]struct{}, len(remoteOrders))
	for _, order := range remoteOrders {
		orderKeys[e.policy.OrderKey(order)] = struct{}{}
	}
	mergedOrders := remoteOrders
	addedOrders := 0
	for _, order := range localOrders {
		if _, ok := orderKeys[e.policy.OrderKey(order)]; ok {
			continue
		}
		// The composite key misses orders whose visit count drifted;
		// the direct field comparison catches those.
		if orderMatchesAny(order, remoteOrders) {
			continue
		}
		mergedOrders = append(mergedOrders, order)
		addedOrders++
	}
	if err := e.orders.Save(ctx, mergedOrders); err != nil {
		return e.fail(opMerge, "save_orders", err)
	}

	message := fmt.Sprintf("Merge complete! %d clients and %d service orders total (%d clients and %d orders kept from this device).",
		len(mergedClients), len(mergedOrders), addedClients, addedOrders)
	e.logger.Info("merge pass finished",
		zap.String("operation", opMerge),
		zap.Int("clients_total", len(mergedClients)),
		zap.Int("orders_total", len(mergedOrders)),
		zap.Int("clients_added", addedClients),
		zap.Int("orders_added", addedOrders))
	return Result{Success: true, Message: message}
}

func orderMatchesAny(order records.ServiceOrder, candidates []records.ServiceOrder) bool {
	for _, candidate := range candidates {
		if records.SameOrder(order, candidate) {
			return true
		}
	}
	return false
}
