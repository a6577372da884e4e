package flowstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/flowcanvas/errors"
	"github.com/c360/flowcanvas/natsclient"
)

// BucketName is the NATS KV bucket holding flow definitions
const BucketName = "flowcanvas_flows"

// Store provides persistence for Flow entities using NATS KV
type Store struct {
	kvStore *natsclient.KVStore
}

// NewStore creates a new flow store backed by NATS JetStream KV
func NewStore(natsClient *natsclient.Client) (*Store, error) {
	if natsClient == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nats client cannot be nil"),
			"flowstore", "NewStore", "validate dependencies")
	}

	ctx := context.Background()
	bucket, err := natsClient.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketName,
		Description: "Visual flow definitions and metadata",
		History:     10, // Keep last 10 revisions for recovery
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "NewStore", "create KV bucket")
	}

	return &Store{
		kvStore: natsClient.NewKVStore(bucket),
	}, nil
}

// Create creates a new flow
func (s *Store) Create(ctx context.Context, flow *Flow) error {
	if flow == nil {
		return errors.WrapInvalid(
			fmt.Errorf("flow cannot be nil"),
			"flowstore", "Create", "validate flow")
	}
	if flow.ID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("flow ID cannot be empty"),
			"flowstore", "Create", "validate flow")
	}
	if err := flow.Validate(); err != nil {
		return err
	}

	flow.Version = 1
	now := time.Now()
	flow.CreatedAt = now
	flow.UpdatedAt = now

	data, err := json.Marshal(flow)
	if err != nil {
		return errors.WrapFatal(err, "flowstore", "Create", "marshal flow")
	}

	// Create() only succeeds if the key doesn't exist yet
	if _, err := s.kvStore.Create(ctx, flow.ID, data); err != nil {
		if natsclient.IsKVConflictError(err) {
			return errors.WrapInvalid(errors.ErrFlowExists, "flowstore", "Create", "flow already exists")
		}
		return errors.WrapTransient(err, "flowstore", "Create", "create in KV")
	}

	return nil
}

// Get retrieves a flow by ID
func (s *Store) Get(ctx context.Context, id string) (*Flow, error) {
	if id == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("flow ID cannot be empty"),
			"flowstore", "Get", "validate id")
	}

	entry, err := s.kvStore.Get(ctx, id)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.ErrFlowNotFound
		}
		return nil, errors.WrapTransient(err, "flowstore", "Get", "get from KV")
	}

	var flow Flow
	if err := json.Unmarshal(entry.Value, &flow); err != nil {
		return nil, errors.WrapFatal(err, "flowstore", "Get", "unmarshal flow")
	}

	return &flow, nil
}

// Update updates an existing flow with optimistic concurrency control
func (s *Store) Update(ctx context.Context, flow *Flow) error {
	if flow == nil {
		return errors.WrapInvalid(
			fmt.Errorf("flow cannot be nil"),
			"flowstore", "Update", "validate flow")
	}
	if flow.ID == "" {
		return errors.WrapInvalid(
			fmt.Errorf("flow ID cannot be empty"),
			"flowstore", "Update", "validate flow")
	}
	if err := flow.Validate(); err != nil {
		return err
	}

	current, err := s.Get(ctx, flow.ID)
	if err != nil {
		return err
	}

	if current.Version != flow.Version {
		return errors.WrapInvalid(
			fmt.Errorf("%w: expected %d, got %d", errors.ErrVersionConflict, current.Version, flow.Version),
			"flowstore", "Update", "conflict: flow was modified by another user")
	}

	flow.Version++
	flow.CreatedAt = current.CreatedAt
	flow.UpdatedAt = time.Now()

	data, err := json.Marshal(flow)
	if err != nil {
		return errors.WrapFatal(err, "flowstore", "Update", "marshal flow")
	}

	if _, err := s.kvStore.Put(ctx, flow.ID, data); err != nil {
		return errors.WrapTransient(err, "flowstore", "Update", "put to KV")
	}

	return nil
}

// Delete removes a flow by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(
			fmt.Errorf("flow ID cannot be empty"),
			"flowstore", "Delete", "validate id")
	}

	if err := s.kvStore.Delete(ctx, id); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return errors.ErrFlowNotFound
		}
		return errors.WrapTransient(err, "flowstore", "Delete", "delete from KV")
	}

	return nil
}

// List retrieves all flows
func (s *Store) List(ctx context.Context) ([]*Flow, error) {
	keys, err := s.kvStore.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "List", "list KV keys")
	}

	flows := make([]*Flow, 0, len(keys))
	for _, key := range keys {
		flow, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "flowstore", "List",
				fmt.Sprintf("get flow %s", key))
		}
		flows = append(flows, flow)
	}

	return flows, nil
}
