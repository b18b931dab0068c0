package prompts

import (
	"fmt"
	"sort"
	"sync"
)

// PromptRegistry manages versioned persona prompts.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]map[PromptVersion]*Prompt // ID -> Version -> Prompt
}

var defaultRegistry *PromptRegistry
var defaultRegistryOnce sync.Once

// DefaultRegistry returns the default global prompt registry.
func DefaultRegistry() *PromptRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewPromptRegistry()
	})
	return defaultRegistry
}

// NewPromptRegistry creates a new prompt registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		prompts: make(map[string]map[PromptVersion]*Prompt),
	}
}

// Register registers a prompt in the registry.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[PromptVersion]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves a specific version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	prompt, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}

	return prompt, nil
}

// GetLatest retrieves the newest non-deprecated version of a prompt, or the
// newest version when every one is deprecated.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	versions := r.Versions(id)
	if len(versions) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion := r.prompts[id]
	for i := len(versions) - 1; i >= 0; i-- {
		if p := byVersion[versions[i]]; !p.Deprecated {
			return p, nil
		}
	}
	return byVersion[versions[len(versions)-1]], nil
}

// List returns all prompt IDs in the registry, sorted.
func (r *PromptRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Versions returns the versions registered for id, oldest first.
func (r *PromptRegistry) Versions(id string) []PromptVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil
	}

	result := make([]PromptVersion, 0, len(versions))
	for version := range versions {
		result = append(result, version)
	}
	sort.Slice(result, func(i, j int) bool { return versionLess(result[i], result[j]) })
	return result
}

// versionLess orders dotted numeric versions component by component.
func versionLess(a, b PromptVersion) bool {
	var as, bs [3]int
	fmt.Sscanf(string(a), "%d.%d.%d", &as[0], &as[1], &as[2])
	fmt.Sscanf(string(b), "%d.%d.%d", &bs[0], &bs[1], &bs[2])
	for i := range as {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return a < b
}
