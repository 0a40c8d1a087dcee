package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketForProject(t *testing.T) {
	bucket := BucketForProject("68B1F00DAB12CD34EF56AB78")
	require.Equal(t, "atelier-68b1f00dab12cd34ef56ab78", bucket)
	require.LessOrEqual(t, len(bucket), 63)
}

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("floor-plan.pdf")
	require.True(t, strings.HasSuffix(key, "/floor-plan.pdf"))

	// Two uploads of the same filename never collide.
	require.NotEqual(t, key, NewObjectKey("floor-plan.pdf"))
}

func TestDisabledClient(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	require.False(t, c.Enabled())

	ctx := context.Background()
	projectID := "68b1f00dab12cd34ef56ab78"

	require.ErrorIs(t, c.EnsureBucket(ctx, projectID), ErrDisabled)
	require.ErrorIs(t, c.PutObject(ctx, projectID, "k", nil, 0, ""), ErrDisabled)
	_, err = c.GetObject(ctx, projectID, "k")
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, c.DeleteObject(ctx, projectID, "k"), ErrDisabled)
	require.ErrorIs(t, c.DeleteProjectObjects(ctx, projectID), ErrDisabled)
}
