package errprocess

import (
	"errors"
	"testing"

	"chat_relay_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestSetAndWrap(t *testing.T) {
	logger.SetNewNop()

	assert.EqualError(t, Set("boom"), "boom")
	assert.NoError(t, Wrap("ignored", nil))

	base := errors.New("dial tcp")
	err := Wrap("connect mongo", base)
	assert.ErrorIs(t, err, base)
	assert.EqualError(t, err, "connect mongo: dial tcp")
}
