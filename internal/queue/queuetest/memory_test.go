package queuetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_VisibilityTimeout(t *testing.T) {
	ctx := context.Background()
	q := New(time.Minute)

	id, err := q.Send(ctx, []byte("job"))
	require.NoError(t, err)

	first, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, id, first[0].ID)

	again, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again, "in-flight message must stay invisible")

	q.MakeVisible()
	second, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].Receipt, second[0].Receipt)

	assert.Error(t, q.Delete(ctx, first[0]), "stale receipt")
	require.NoError(t, q.Delete(ctx, second[0]))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{id}, q.Deleted())
}

func TestQueue_ReleaseAndDeadLetter(t *testing.T) {
	ctx := context.Background()
	q := New(time.Minute)

	_, err := q.Send(ctx, []byte("a"))
	require.NoError(t, err)

	msgs, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Release(ctx, msgs[0], 0))
	assert.Equal(t, []time.Duration{0}, q.Released())

	msgs, err = q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, q.Extend(ctx, msgs[0], time.Hour))
	assert.Equal(t, 1, q.Extended())

	require.NoError(t, q.DeadLetter(ctx, msgs[0], "bad payload"))
	assert.Equal(t, 0, q.Len())
	require.Len(t, q.DeadLetters(), 1)
	assert.Equal(t, "bad payload", q.DeadLetters()[0].Reason)
}
