package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisAdapter_KeyPrefix(t *testing.T) {
	adapter := NewRedisAdapter(nil, "clinic:")
	assert.Equal(t, "clinic:patient:pat-1", adapter.key("patient:pat-1"))
}

func TestRedisAdapter_DeleteNothing(t *testing.T) {
	adapter := NewRedisAdapter(nil, "clinic:")
	assert.NoError(t, adapter.Delete(context.Background()))
}
