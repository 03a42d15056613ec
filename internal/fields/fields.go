// Package fields declares which record fields are translatable and how each
// field's shape is walked, hashed, and merged.
package fields

import (
	"fmt"

	"prodtrans/internal/domain"
)

// Kind selects the walking strategy for one field.
type Kind string

const (
	// KindScalar is a plain string field, overwritten in place.
	KindScalar Kind = "scalar"
	// KindLocalizedList is a sequence of {value, isocode} entries; the
	// translation is appended as a new entry for the target locale.
	KindLocalizedList Kind = "localized_list"
	// KindNestedList is a sequence of sub-records whose named attributes
	// are overwritten in place.
	KindNestedList Kind = "nested_list"
)

// Rule binds one top-level record field to a walking strategy.
type Rule struct {
	Field     string
	Kind      Kind
	Subfields []string
}

// Policy is an ordered rule set plus the locale the source content is in.
// Fields without a rule are never visited.
type Policy struct {
	Source string
	Rules  []Rule
}

// Path addresses the destination of one translated text inside a record.
// Index is -1 for scalars; Sub is set only for nested lists.
type Path struct {
	Field string
	Index int
	Sub   string
}

func (p Path) String() string {
	switch {
	case p.Sub != "":
		return fmt.Sprintf("%s[%d].%s", p.Field, p.Index, p.Sub)
	case p.Index >= 0:
		return fmt.Sprintf("%s[%d]", p.Field, p.Index)
	default:
		return p.Field
	}
}

// Unit is one (path, source text) pair scheduled for translation.
type Unit struct {
	Path Path
	Text string
}

// Select returns a policy narrowed to the named fields, preserving rule
// order. Unknown names are ignored.
func (p Policy) Select(names ...string) Policy {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	out := Policy{Source: p.Source}
	for _, rule := range p.Rules {
		if keep[rule.Field] {
			out.Rules = append(out.Rules, rule)
		}
	}
	return out
}

// Plan walks the record and emits translation units in rule order. Missing
// or empty fields yield no units.
func (p Policy) Plan(record domain.Record) []Unit {
	var units []Unit
	for _, rule := range p.Rules {
		switch rule.Kind {
		case KindScalar:
			if text := record.StringField(rule.Field); text != "" {
				units = append(units, Unit{Path: Path{Field: rule.Field, Index: -1}, Text: text})
			}
		case KindLocalizedList:
			list, _ := record[rule.Field].([]any)
			for i, item := range list {
				lv, ok := domain.ParseLocalizedValue(item)
				if !ok || lv.Locale != p.Source {
					continue
				}
				units = append(units, Unit{Path: Path{Field: rule.Field, Index: i}, Text: lv.Value})
			}
		case KindNestedList:
			list, _ := record[rule.Field].([]any)
			for i, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					continue
				}
				for _, attr := range rule.Subfields {
					text, ok := sub[attr].(string)
					if !ok {
						continue
					}
					units = append(units, Unit{Path: Path{Field: rule.Field, Index: i, Sub: attr}, Text: text})
				}
			}
		}
	}
	return units
}

// Merge writes one translated text back into the record at the unit's path.
// Localized lists gain at most one entry per target locale: when an entry
// for targetLocale already exists the merge keeps it and does nothing.
func (p Policy) Merge(record domain.Record, unit Unit, translated, targetLocale string) error {
	rule, ok := p.rule(unit.Path.Field)
	if !ok {
		return fmt.Errorf("fields: no rule for field %q", unit.Path.Field)
	}
	switch rule.Kind {
	case KindScalar:
		record[unit.Path.Field] = translated
		return nil
	case KindLocalizedList:
		list, ok := record[unit.Path.Field].([]any)
		if !ok {
			return fmt.Errorf("fields: field %q is not a localized list", unit.Path.Field)
		}
		if hasLocale(list, targetLocale) {
			return nil
		}
		record[unit.Path.Field] = append(list, domain.LocalizedValue{Value: translated, Locale: targetLocale}.AsMap())
		return nil
	case KindNestedList:
		list, ok := record[unit.Path.Field].([]any)
		if !ok || unit.Path.Index < 0 || unit.Path.Index >= len(list) {
			return fmt.Errorf("fields: path %s is not addressable", unit.Path)
		}
		sub, ok := list[unit.Path.Index].(map[string]any)
		if !ok {
			return fmt.Errorf("fields: path %s does not address an object", unit.Path)
		}
		sub[unit.Path.Sub] = translated
		return nil
	}
	return fmt.Errorf("fields: unknown rule kind %q", rule.Kind)
}

// HashContent projects the record onto the content that feeds translation:
// scalar values, source-locale entries of localized lists, and the
// translatable sub-attributes of nested lists. Entries in other locales
// never enter the projection, so appending a translation does not move the
// record to a new fingerprint.
func (p Policy) HashContent(record domain.Record) map[string]any {
	content := make(map[string]any, len(p.Rules))
	for _, rule := range p.Rules {
		raw, present := record[rule.Field]
		if !present {
			continue
		}
		switch rule.Kind {
		case KindScalar:
			content[rule.Field] = raw
		case KindLocalizedList:
			list, ok := raw.([]any)
			if !ok {
				continue
			}
			src := make([]any, 0, len(list))
			for _, item := range list {
				if lv, ok := domain.ParseLocalizedValue(item); ok && lv.Locale == p.Source {
					src = append(src, lv.AsMap())
				}
			}
			content[rule.Field] = src
		case KindNestedList:
			list, ok := raw.([]any)
			if !ok {
				continue
			}
			proj := make([]any, 0, len(list))
			for _, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					continue
				}
				el := make(map[string]any, len(rule.Subfields))
				for _, attr := range rule.Subfields {
					if v, present := sub[attr]; present {
						el[attr] = v
					}
				}
				proj = append(proj, el)
			}
			content[rule.Field] = proj
		}
	}
	return content
}

func (p Policy) rule(field string) (Rule, bool) {
	for _, rule := range p.Rules {
		if rule.Field == field {
			return rule, true
		}
	}
	return Rule{}, false
}

func hasLocale(list []any, locale string) bool {
	for _, item := range list {
		if lv, ok := domain.ParseLocalizedValue(item); ok && lv.Locale == locale {
			return true
		}
	}
	return false
}
