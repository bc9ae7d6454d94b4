package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "gradebook:c1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "gradebook:c1", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "gradebook:c1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "gradebook:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
