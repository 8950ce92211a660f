package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.DefaultPage)
	assert.Equal(t, 20, cfg.DefaultLimit)
	assert.Equal(t, 100, cfg.MaxLimit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAGINATION_DEFAULT_PAGE", "2")
	t.Setenv("PAGINATION_DEFAULT_LIMIT", "40")
	t.Setenv("PAGINATION_MAX_LIMIT", "200")

	cfg := LoadFromEnv()

	assert.Equal(t, 2, cfg.DefaultPage)
	assert.Equal(t, 40, cfg.DefaultLimit)
	assert.Equal(t, 200, cfg.MaxLimit)
}

func TestLoadFromEnv_UnparsableFallsBack(t *testing.T) {
	t.Setenv("PAGINATION_MAX_LIMIT", "plenty")

	cfg := LoadFromEnv()

	assert.Equal(t, 100, cfg.MaxLimit)
}
