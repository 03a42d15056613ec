package domain

import "time"

// ModifiedAtLayout is the timestamp layout the catalog feed uses for the
// lastModified field. Values carry no zone and are taken as UTC.
const ModifiedAtLayout = "2006-01-02T15:04:05"

// Well-known field names present on every catalog record.
const (
	FieldTenant        = "app"
	FieldCatalogNumber = "catalogNumber"
	FieldCode          = "code"
	FieldStatus        = "productLifeCycleStatus"
	FieldModified      = "lastModified"
)

// Record is one product record as decoded from catalog JSON. Field values
// are scalars, lists of localized values, or lists of sub-records.
type Record map[string]any

// LocalizedValue is a single language variant inside a localized list field.
type LocalizedValue struct {
	Value  string `json:"value"`
	Locale string `json:"isocode"`
}

// AsMap renders the value in the wire shape used inside record fields.
func (lv LocalizedValue) AsMap() map[string]any {
	return map[string]any{"value": lv.Value, "isocode": lv.Locale}
}

// ParseLocalizedValue reads one entry of a localized list field. It reports
// false when the entry is not an object or carries no locale.
func ParseLocalizedValue(v any) (LocalizedValue, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return LocalizedValue{}, false
	}
	var lv LocalizedValue
	lv.Value, _ = m["value"].(string)
	lv.Locale, _ = m["isocode"].(string)
	return lv, lv.Locale != ""
}

// Identity keys a record across tenants.
type Identity struct {
	Tenant        string
	CatalogNumber string
}

// Identity extracts the record's identity. ok is false when either part is
// missing or empty.
func (r Record) Identity() (Identity, bool) {
	id := Identity{
		Tenant:        r.StringField(FieldTenant),
		CatalogNumber: r.StringField(FieldCatalogNumber),
	}
	return id, id.Tenant != "" && id.CatalogNumber != ""
}

// ModifiedAt parses the record's last-modified timestamp.
func (r Record) ModifiedAt() (time.Time, bool) {
	raw := r.StringField(FieldModified)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(ModifiedAtLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StringField returns the named field when it holds a string, else "".
func (r Record) StringField(name string) string {
	s, _ := r[name].(string)
	return s
}

// Clone returns a deep copy. Mutating the copy never touches the source.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
