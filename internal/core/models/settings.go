package models

// SettingsScope identifies which settings layer a value came from.
type SettingsScope string

const (
	ScopeGlobal  SettingsScope = "global"
	ScopeProject SettingsScope = "project"
	ScopeLocal   SettingsScope = "local"
)

// MergedConfig is the effective three-tier settings merge. Provenance maps
// each top-level key to the scope that supplied its winning value.
type MergedConfig struct {
	Values     map[string]any           `json:"values"`
	Provenance map[string]SettingsScope `json:"provenance"`
}

// NewMergedConfig returns an empty merge result ready to accept layers.
func NewMergedConfig() *MergedConfig {
	return &MergedConfig{
		Values:     make(map[string]any),
		Provenance: make(map[string]SettingsScope),
	}
}

// Clone returns a copy safe to hand to callers. Values are copied one level
// deep; nested structures are shared but never mutated by the store.
func (c *MergedConfig) Clone() *MergedConfig {
	if c == nil {
		return nil
	}
	cp := NewMergedConfig()
	for k, v := range c.Values {
		cp.Values[k] = v
	}
	for k, v := range c.Provenance {
		cp.Provenance[k] = v
	}
	return cp
}
