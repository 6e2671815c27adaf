package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuplicateChecker_IsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := newDetail("req-1", "conv-1")
	dup, err := f.duplicates.IsDuplicate(ctx, first.MessageID, first.ConversationID, first.CpaID)
	require.NoError(t, err)
	require.False(t, dup)

	_, err = f.store.InsertMessageDetail(ctx, first)
	require.NoError(t, err)

	second := newDetail("req-2", "conv-1")
	second.MessageID = first.MessageID

	dup, err = f.duplicates.IsDuplicate(ctx, second.MessageID, second.ConversationID, second.CpaID)
	require.NoError(t, err)
	require.True(t, dup)

	// Detection does not prevent the second insert.
	_, err = f.store.InsertMessageDetail(ctx, second)
	require.NoError(t, err)

	dup, err = f.duplicates.IsDuplicate(ctx, first.MessageID, "conv-2", first.CpaID)
	require.NoError(t, err)
	require.False(t, dup)
}
