package remote

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/llopes04/fieldsync/internal/records"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Config identifies the Firestore project backing the remote store.
// The store is an explicit object with its own lifetime: reconfiguring
// means building a new Store and closing the old one, there is no
// mutable global handle.
type Config struct {
	ProjectID       string
	CredentialsPath string
	Logger          *zap.Logger
}

// Validate fails fast, before any network call, when the configuration
// cannot possibly work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("%w: missing project id", ErrNotConfigured)
	}
	if strings.TrimSpace(c.CredentialsPath) == "" {
		return fmt.Errorf("%w: missing credentials path", ErrNotConfigured)
	}
	return nil
}

// Store wraps the Firestore client and exposes one Collection per
// entity type.
type Store struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewStore connects to Firestore using the provided configuration.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firestore client: %w", err)
	}

	logger.Info("connected to remote store", zap.String("project_id", cfg.ProjectID))
	return &Store{client: client, logger: logger}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Collection returns the document collection for an entity kind.
func (s *Store) Collection(kind records.Kind) *Collection {
	return &Collection{
		ref:    s.client.Collection(string(kind)),
		kind:   kind,
		logger: s.logger,
	}
}

// Document is one raw remote document: the server-assigned id plus the
// field map, before normalization into a typed record.
type Document struct {
	ID   string
	Data map[string]any
}

// Collection is the network-backed document collection for one entity
// type. All errors are classified into the remote taxonomy.
type Collection struct {
	ref    *firestore.CollectionRef
	kind   records.Kind
	logger *zap.Logger
}

// Create adds a document and returns its server-assigned id. The server
// timestamp keeps the collection orderable by creation, matching what
// the PWA client writes.
func (c *Collection) Create(ctx context.Context, fields map[string]any) (string, error) {
	doc := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		doc[key] = value
	}
	doc["createdAt"] = firestore.ServerTimestamp

	ref, _, err := c.ref.Add(ctx, doc)
	if err != nil {
		return "", classify(fmt.Sprintf("create %s document", c.kind), err)
	}
	return ref.ID, nil
}

// GetAll returns every document in the collection.
func (c *Collection) GetAll(ctx context.Context) ([]Document, error) {
	iter := c.ref.Documents(ctx)
	defer iter.Stop()

	var documents []Document
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(fmt.Sprintf("list %s documents", c.kind), err)
		}
		documents = append(documents, Document{ID: snapshot.Ref.ID, Data: snapshot.Data()})
	}
	return documents, nil
}

// Update merges the provided fields into an existing document.
func (c *Collection) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := c.ref.Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return classify(fmt.Sprintf("update %s document %s", c.kind, id), err)
	}
	return nil
}

// Delete removes a document by id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	_, err := c.ref.Doc(id).Delete(ctx)
	if err != nil {
		return classify(fmt.Sprintf("delete %s document %s", c.kind, id), err)
	}
	return nil
}
