package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetPut(t *testing.T) {
	t.Parallel()

	c, err := New(4)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Put("a", []byte("alpha")))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), got)

	require.NoError(t, c.Delete("a"))
	_, ok = c.Get("a")
	assert.False(t, ok)
	require.NoError(t, c.Delete("a"))
}

func TestCacheEvicts(t *testing.T) {
	t.Parallel()

	c, err := New(2)
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), []byte{byte(i)}))
	}
	assert.LessOrEqual(t, c.Len(), 2)
	got, ok := c.Get("k4")
	require.True(t, ok)
	assert.Equal(t, []byte{4}, got)
}

func TestCacheMaxEntrySize(t *testing.T) {
	t.Parallel()

	c, err := New(4, WithMaxEntrySize(3))
	require.NoError(t, err)
	require.NoError(t, c.Put("big", []byte("too large")))
	_, ok := c.Get("big")
	assert.False(t, ok)

	require.NoError(t, c.Put("ok", []byte("fit")))
	_, ok = c.Get("ok")
	assert.True(t, ok)
}

func TestNewRejectsInvalidSize(t *testing.T) {
	t.Parallel()

	_, err := New(0)
	require.Error(t, err)

	_, err = New(1, WithMaxEntrySize(-1))
	require.Error(t, err)
}
