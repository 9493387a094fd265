package config

// Merge returns a copy of base with every non-empty value of overlay
// applied on top.
func Merge(base, overlay *Config) *Config {
	merged := &Config{}
	if base != nil {
		*merged = *base
	}
	if overlay == nil {
		return merged
	}

	values := overlay.fields()
	for key, field := range merged.fields() {
		if v := *values[key]; v != "" {
			*field = v
		}
	}

	return merged
}

// Overrides lists the keys whose values differ between base and merged.
func Overrides(base, merged *Config) map[string]string {
	overrides := make(map[string]string)
	baseValues := base.fields()
	for key, field := range merged.fields() {
		if *field != *baseValues[key] {
			overrides[key] = *field
		}
	}
	return overrides
}
