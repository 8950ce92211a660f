package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rss-coordinator/internal/domain/entity"
)

// ProviderConfig is one entry of the registry config file.
// API keys may reference environment variables with ${VAR} syntax.
type ProviderConfig struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Active         bool   `yaml:"active"`
}

// RegistryConfig is the root of the registry config file.
type RegistryConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// Registry maps provider names to implementations. Order follows the config
// file; the first active entry is the default.
type Registry struct {
	order     []string
	providers map[string]Provider
	active    map[string]bool
}

// LoadRegistryConfig parses the YAML registry file at path.
func LoadRegistryConfig(path string) (*RegistryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRegistryConfig: %w", err)
	}
	var cfg RegistryConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("LoadRegistryConfig: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// NewRegistry builds providers from config entries. Entries with an unknown
// type fail; entries without an API key after env expansion are registered
// but inactive.
func NewRegistry(cfg *RegistryConfig) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(cfg.Providers)),
		active:    make(map[string]bool, len(cfg.Providers)),
	}
	for _, pc := range cfg.Providers {
		if pc.Name == "" {
			return nil, fmt.Errorf("NewRegistry: provider entry without name")
		}
		if _, dup := r.providers[pc.Name]; dup {
			return nil, fmt.Errorf("NewRegistry: duplicate provider %q", pc.Name)
		}
		apiKey := os.ExpandEnv(pc.APIKey)

		var p Provider
		switch pc.Type {
		case "openai":
			p = NewOpenAI(pc.Name, apiKey, pc.BaseURL, pc.ChatModel, pc.EmbeddingModel)
		case "anthropic":
			p = NewAnthropic(pc.Name, apiKey, pc.ChatModel)
		default:
			return nil, fmt.Errorf("NewRegistry: provider %q: unknown type %q", pc.Name, pc.Type)
		}

		r.order = append(r.order, pc.Name)
		r.providers[pc.Name] = p
		r.active[pc.Name] = pc.Active && apiKey != ""
	}
	return r, nil
}

// Names returns all registered provider names in config order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Create resolves a provider and model pair. An empty name selects the first
// active provider; an empty model selects that provider's default chat model.
func (r *Registry) Create(name, model string) (Provider, string, error) {
	var p Provider
	if name == "" {
		for _, n := range r.order {
			if r.active[n] {
				p = r.providers[n]
				break
			}
		}
		if p == nil {
			return nil, "", entity.NewKindError(entity.KindProviderFatal,
				fmt.Errorf("no active provider configured"))
		}
	} else {
		var ok bool
		p, ok = r.providers[name]
		if !ok {
			return nil, "", entity.NewKindError(entity.KindNotFound,
				fmt.Errorf("provider %q not registered", name))
		}
		if !r.active[name] {
			return nil, "", entity.NewKindError(entity.KindProviderFatal,
				fmt.Errorf("provider %q is not active", name))
		}
	}
	if model == "" {
		model = p.DefaultChatModel()
	}
	return p, model, nil
}

// Embedder returns the first active provider with an embeddings capability
// and its default embedding model.
func (r *Registry) Embedder() (Provider, string, error) {
	for _, n := range r.order {
		if !r.active[n] {
			continue
		}
		p := r.providers[n]
		if p.DefaultEmbeddingModel() != "" {
			return p, p.DefaultEmbeddingModel(), nil
		}
	}
	return nil, "", entity.NewKindError(entity.KindProviderFatal,
		fmt.Errorf("no active embedding provider configured"))
}

// Get returns a provider by name regardless of active state, for health
// reporting.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Active reports whether the named provider is usable.
func (r *Registry) Active(name string) bool {
	return r.active[name]
}
