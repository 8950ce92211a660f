package provider

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/domain/entity"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	t.Setenv("TEST_ANTHROPIC_KEY", "ak-test")

	reg, err := NewRegistry(&RegistryConfig{
		Providers: []ProviderConfig{
			{Name: "openai", Type: "openai", APIKey: "${TEST_OPENAI_KEY}",
				ChatModel: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-large", Active: true},
			{Name: "anthropic", Type: "anthropic", APIKey: "${TEST_ANTHROPIC_KEY}",
				ChatModel: "claude-sonnet-4-5", Active: true},
			{Name: "backup", Type: "openai", APIKey: "", Active: true},
		},
	})
	require.NoError(t, err)
	return reg
}

func TestRegistry_Create_Defaults(t *testing.T) {
	reg := testRegistry(t)

	p, model, err := reg.Create("", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestRegistry_Create_Named(t *testing.T) {
	reg := testRegistry(t)

	p, model, err := reg.Create("anthropic", "claude-haiku-4-5")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-haiku-4-5", model)
}

func TestRegistry_Create_UnknownName(t *testing.T) {
	reg := testRegistry(t)

	_, _, err := reg.Create("gemini", "")
	assert.Equal(t, entity.KindNotFound, entity.KindOf(err))
}

func TestRegistry_Create_MissingKeyInactive(t *testing.T) {
	reg := testRegistry(t)

	// "backup" has no API key so it is registered but not usable.
	_, _, err := reg.Create("backup", "")
	assert.Equal(t, entity.KindProviderFatal, entity.KindOf(err))
}

func TestRegistry_Embedder_SkipsChatOnly(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "ak-test")
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	reg, err := NewRegistry(&RegistryConfig{
		Providers: []ProviderConfig{
			{Name: "anthropic", Type: "anthropic", APIKey: "${TEST_ANTHROPIC_KEY}", Active: true},
			{Name: "openai", Type: "openai", APIKey: "${TEST_OPENAI_KEY}",
				EmbeddingModel: "text-embedding-3-large", Active: true},
		},
	})
	require.NoError(t, err)

	p, model, err := reg.Embedder()
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "text-embedding-3-large", model)
}

func TestLoadRegistryConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	content := `
providers:
  - name: openai
    type: openai
    api_key: ${OPENAI_API_KEY}
    chat_model: gpt-4o-mini
    embedding_model: text-embedding-3-large
    active: true
  - name: anthropic
    type: anthropic
    api_key: ${ANTHROPIC_API_KEY}
    active: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadRegistryConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "openai", cfg.Providers[0].Name)
	assert.True(t, cfg.Providers[0].Active)
	assert.False(t, cfg.Providers[1].Active)
}

func TestNewRegistry_RejectsUnknownType(t *testing.T) {
	_, err := NewRegistry(&RegistryConfig{
		Providers: []ProviderConfig{{Name: "x", Type: "palm", APIKey: "k", Active: true}},
	})
	assert.Error(t, err)
}

func TestNoEmbeddingsErrorIsFatal(t *testing.T) {
	err := classify(&noEmbeddingsError{provider: "anthropic"})
	assert.Equal(t, entity.KindProviderFatal, entity.KindOf(err))
	assert.True(t, errors.Is(err, ErrNoEmbeddings))
}
