package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogger_FallbackBeforeInit(t *testing.T) {
	// Before Initialize runs, GetLogger must still return a usable logger.
	l := GetLogger()
	assert.NotNil(t, l)
}

func TestInitialize(t *testing.T) {
	err := Initialize(true)
	assert.NoError(t, err)
	assert.NotNil(t, GetLogger())

	// Initialize is sync.Once guarded; calling again is a no-op.
	err = Initialize(false)
	assert.NoError(t, err)
}

func TestAppendContextFields(t *testing.T) {
	ctx := WithSession(context.Background(), "session-1", "user-1")
	ctx = context.WithValue(ctx, RoomKey, "rust")

	fields := appendContextFields(ctx, nil)

	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "session_id")
	assert.Contains(t, keys, "user_id")
	assert.Contains(t, keys, "room")
	assert.Contains(t, keys, "service")
}

func TestAppendContextFields_NilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard on purpose
	fields := appendContextFields(nil, nil)
	assert.Empty(t, fields)
}
