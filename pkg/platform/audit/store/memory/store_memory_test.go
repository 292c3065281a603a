package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cac/pkg/domain"
	audit "cac/pkg/platform/audit"
)

const actor = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func TestListByActorFilters(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, audit.Event{Actor: actor, Action: string(audit.EventMinted), Amount: 10}))
	require.NoError(t, store.Append(ctx, audit.Event{Actor: actor, Action: string(audit.EventSurrendered), Amount: 3}))
	require.NoError(t, store.Append(ctx, audit.Event{Account: actor, Action: string(audit.EventTransferred), Amount: 2}))

	all, err := store.ListByActor(ctx, actor.String(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "matches actor or account")

	surrenders, err := store.ListByActor(ctx, actor.String(), string(audit.EventSurrendered))
	require.NoError(t, err)
	require.Len(t, surrenders, 1)
	assert.Equal(t, int64(3), surrenders[0].Amount)
}

func TestListRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Append(ctx, audit.Event{Actor: actor, Action: "op", Amount: i}))
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(5), recent[0].Amount)
	assert.Equal(t, int64(4), recent[1].Amount)
}
