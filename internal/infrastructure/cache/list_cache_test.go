package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	ID  int64 `json:"id"`
	Seq int   `json:"seq"`
}

func TestListCacheLocalOnly(t *testing.T) {
	ctx := context.Background()
	c := New(nil, Options{LocalTTL: time.Minute})

	var got []listing
	hit, err := c.Get(ctx, "course-items:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []listing{{ID: 10, Seq: 1}, {ID: 11, Seq: 2}}
	require.NoError(t, c.Set(ctx, "course-items:1", want))

	hit, err = c.Get(ctx, "course-items:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "course-items:1"))

	got = nil
	hit, err = c.Get(ctx, "course-items:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
}

func TestListCacheStoresSnapshot(t *testing.T) {
	ctx := context.Background()
	c := New(nil, Options{})

	value := []listing{{ID: 1, Seq: 1}}
	require.NoError(t, c.Set(ctx, "home-banners", value))
	value[0].Seq = 99

	var got []listing
	hit, err := c.Get(ctx, "home-banners", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1, got[0].Seq)
}

func TestListCacheDeleteMissingKey(t *testing.T) {
	c := New(nil, Options{})
	assert.NoError(t, c.Delete(context.Background(), "course-items:404"))
}

func TestListCacheEvictLocal(t *testing.T) {
	ctx := context.Background()
	c := New(nil, Options{LocalTTL: time.Minute})

	require.NoError(t, c.Set(ctx, "course-items:3", []listing{{ID: 1, Seq: 1}}))
	require.NoError(t, c.Set(ctx, "course-items:4", []listing{{ID: 2, Seq: 1}}))

	c.EvictLocal("course-items:3")

	var got []listing
	hit, err := c.Get(ctx, "course-items:3", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.Get(ctx, "course-items:4", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}
