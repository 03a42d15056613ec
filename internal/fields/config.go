package fields

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultSource is assumed when a policy file omits the source locale.
const DefaultSource = "en"

type ruleJSON struct {
	Field     string   `json:"field"`
	Kind      Kind     `json:"kind"`
	Subfields []string `json:"subfields,omitempty"`
}

type policyJSON struct {
	Source string     `json:"source"`
	Rules  []ruleJSON `json:"rules"`
}

// Default returns the built-in catalog product policy.
func Default() Policy {
	return Policy{
		Source: DefaultSource,
		Rules: []Rule{
			{Field: "names", Kind: KindLocalizedList},
			{Field: "technicalDescription", Kind: KindLocalizedList},
			{Field: "commercialDescription", Kind: KindLocalizedList},
			{Field: "categoryList", Kind: KindNestedList, Subfields: []string{"name", "path"}},
		},
	}
}

// Parse reads and validates a policy from JSON.
func Parse(raw []byte) (Policy, error) {
	var cfg policyJSON
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Policy{}, fmt.Errorf("fields: parse policy: %w", err)
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if len(cfg.Rules) == 0 {
		return Policy{}, fmt.Errorf("fields: policy declares no rules")
	}

	policy := Policy{Source: cfg.Source}
	seen := make(map[string]bool, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if rule.Field == "" {
			return Policy{}, fmt.Errorf("fields: rule %d: field is required", i)
		}
		if seen[rule.Field] {
			return Policy{}, fmt.Errorf("fields: rule %d: duplicate field %q", i, rule.Field)
		}
		seen[rule.Field] = true
		switch rule.Kind {
		case KindScalar, KindLocalizedList:
			if len(rule.Subfields) != 0 {
				return Policy{}, fmt.Errorf("fields: rule %d: subfields only apply to %s", i, KindNestedList)
			}
		case KindNestedList:
			if len(rule.Subfields) == 0 {
				return Policy{}, fmt.Errorf("fields: rule %d: %s requires subfields", i, KindNestedList)
			}
		default:
			return Policy{}, fmt.Errorf("fields: rule %d: unknown kind %q", i, rule.Kind)
		}
		policy.Rules = append(policy.Rules, Rule{Field: rule.Field, Kind: rule.Kind, Subfields: rule.Subfields})
	}
	return policy, nil
}

// Load reads a policy file. An empty path yields the built-in default.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("fields: read policy file: %w", err)
	}
	return Parse(raw)
}
