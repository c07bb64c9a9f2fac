package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPopPreservesOrder(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(ctx, NewAssetDayTask("A", 1, "/tmp/a")))
	}
	assert.Equal(t, 3, q.Depth())

	for i := 0; i < 3; i++ {
		task, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "A", task.AssetCode)
	}
}

func TestQueuePopAfterCloseDrainsThenReportsDone(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, NewAssetDayTask("A", 1, "/tmp/a")))
	q.Close()

	_, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueuePopRespectsContextCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := q.Pop(ctx)
	assert.Error(t, err)
}

func TestNewAssetDayTaskStampsUniqueIDs(t *testing.T) {
	a := NewAssetDayTask("A", 1, "/tmp/a")
	b := NewAssetDayTask("A", 1, "/tmp/a")
	assert.NotEqual(t, a.ID, b.ID)
}
