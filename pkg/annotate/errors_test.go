package annotate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalFailure(t *testing.T) {
	terminal := &TransformError{Reason: "cannot decode image"}
	assert.True(t, IsTerminalFailure(terminal))
	assert.True(t, IsTerminalFailure(fmt.Errorf("handle: %w", terminal)))

	assert.False(t, IsTerminalFailure(errors.New("connection reset")))
	assert.False(t, IsTerminalFailure(ErrSourceUnavailable))
	assert.False(t, IsTerminalFailure(nil))
}

func TestErrorWrapping(t *testing.T) {
	err := &StorageError{Op: "download", Key: "cat.png", Err: ErrSourceUnavailable}
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "cat.png")

	serr := &StoreError{Op: "create", Key: "cat.png", Err: ErrStoreUnavailable}
	assert.ErrorIs(t, serr, ErrStoreUnavailable)

	terr := &TransformError{Reason: "blocked", Err: errors.New("inner")}
	assert.Contains(t, terr.Error(), "blocked")
	assert.Equal(t, "inner", errors.Unwrap(terr).Error())
}
