package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("gate: %w", Clone(ErrAccessExpired, ""))
	appErr := FromError(wrapped)
	assert.Equal(t, "ACCESS_EXPIRED", appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestIsMatchesClonesByCode(t *testing.T) {
	clone := Clone(ErrNotEnrolled, "custom")
	assert.True(t, errors.Is(clone, ErrNotEnrolled))
	assert.False(t, errors.Is(clone, ErrEnrollmentInactive))
	assert.Equal(t, "custom", clone.Message)
	assert.Equal(t, "Not enrolled", ErrNotEnrolled.Message)
}
