//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_KVBasicOperations(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("flowcanvas_test"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "flowcanvas_test")
	require.NoError(t, err)

	kv := tc.Client.NewKVStore(bucket)

	// Create
	rev, err := kv.Create(ctx, "flow-1", []byte(`{"name":"test"}`))
	require.NoError(t, err)
	assert.Greater(t, rev, uint64(0))

	// Create again should conflict
	_, err = kv.Create(ctx, "flow-1", []byte(`{}`))
	assert.ErrorIs(t, err, ErrKVKeyExists)

	// Get
	entry, err := kv.Get(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"test"}`), entry.Value)

	// CAS update with correct revision
	newRev, err := kv.Update(ctx, "flow-1", []byte(`{"name":"renamed"}`), entry.Revision)
	require.NoError(t, err)
	assert.Greater(t, newRev, entry.Revision)

	// CAS update with stale revision should fail
	_, err = kv.Update(ctx, "flow-1", []byte(`{}`), entry.Revision)
	assert.ErrorIs(t, err, ErrKVRevisionMismatch)

	// Delete
	require.NoError(t, kv.Delete(ctx, "flow-1"))
	_, err = kv.Get(ctx, "flow-1")
	assert.ErrorIs(t, err, ErrKVKeyNotFound)
}

func TestIntegration_KVUpdateWithRetryUnderContention(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("flowcanvas_contention"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "flowcanvas_contention")
	require.NoError(t, err)

	kv := tc.Client.NewKVStore(bucket)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := kv.UpdateWithRetry(ctx, "counter", func(current []byte) ([]byte, error) {
				return append(current, []byte(fmt.Sprintf("%d,", n))...), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entry, err := kv.Get(ctx, "counter")
	require.NoError(t, err)

	// All writers must have landed exactly once
	count := 0
	for _, b := range entry.Value {
		if b == ',' {
			count++
		}
	}
	assert.Equal(t, writers, count)
}
