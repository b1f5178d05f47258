package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindCredentials, KindOf(fmt.Errorf("put: %w", ErrCredentials)))
	assert.Equal(t, KindRequest, KindOf(fmt.Errorf("%w: %w", ErrRequest, errors.New("throttled"))))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}
