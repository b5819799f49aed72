package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/pkg/domain"
	audit "registrar/pkg/platform/audit"
	"registrar/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")
	event := audit.Event{
		Owner:  owner,
		Action: string(audit.EventDomainRegistered),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDomainRegistered), events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")
	event := audit.Event{
		Owner:  owner,
		Action: string(audit.EventDomainRenewed),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), owner)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")

	for range 10 {
		event := audit.Event{
			Owner:  owner,
			Action: string(audit.EventDomainBioChanged),
		}
		require.NoError(t, pub.Emit(context.Background(), event))
	}

	pub.Close()

	events, err := store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}

func TestPublisher_EmitAfterCloseIsDropped(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()

	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")
	err := pub.Emit(context.Background(), audit.Event{
		Owner:  owner,
		Action: string(audit.EventDomainRegistered),
	})
	require.NoError(t, err)

	events, err := store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// stallingStore holds every Append until released, keeping the drain
// goroutine busy so the inbox can fill up.
type stallingStore struct {
	*memory.InMemoryStore
	release chan struct{}
}

func (s *stallingStore) Append(ctx context.Context, event audit.Event) error {
	<-s.release
	return s.InMemoryStore.Append(ctx, event)
}

func TestPublisher_FullInboxDropsInsteadOfBlocking(t *testing.T) {
	store := &stallingStore{
		InMemoryStore: memory.NewInMemoryStore(),
		release:       make(chan struct{}),
	}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")
	event := audit.Event{
		Owner:  owner,
		Action: string(audit.EventDomainRegistered),
	}

	// With the drain goroutine stalled and a buffer of one, at most two
	// events are in flight; the rest must return immediately.
	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), event))
	}

	close(store.release)
	pub.Close()

	events, err := store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), 2)
}
