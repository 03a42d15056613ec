package fields

import (
	"encoding/json"
	"testing"

	"prodtrans/internal/domain"
	"prodtrans/internal/fingerprint"
)

const productJSON = `{
	"app": "ACME",
	"catalogNumber": "ABC123",
	"code": "ABC123-std",
	"summary": "Compact relay",
	"names": [
		{"value": "Relay", "isocode": "en"},
		{"value": "Relais", "isocode": "de"}
	],
	"technicalDescription": [
		{"value": "24V coil", "isocode": "en"}
	],
	"commercialDescription": [],
	"categoryList": [
		{"name": "Relays", "path": "Components/Relays", "id": "c1"},
		{"name": "Industrial", "id": "c2"}
	]
}`

func productRecord(t *testing.T) domain.Record {
	t.Helper()
	var r domain.Record
	if err := json.Unmarshal([]byte(productJSON), &r); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	return r
}

func testPolicy() Policy {
	p := Default()
	p.Rules = append([]Rule{{Field: "summary", Kind: KindScalar}}, p.Rules...)
	return p
}

func TestPlanEmitsUnitsInRuleOrder(t *testing.T) {
	record := productRecord(t)
	units := testPolicy().Plan(record)

	want := []struct {
		path string
		text string
	}{
		{"summary", "Compact relay"},
		{"names[0]", "Relay"},
		{"technicalDescription[0]", "24V coil"},
		{"categoryList[0].name", "Relays"},
		{"categoryList[0].path", "Components/Relays"},
		{"categoryList[1].name", "Industrial"},
	}
	if len(units) != len(want) {
		t.Fatalf("Plan returned %d units, want %d: %+v", len(units), len(want), units)
	}
	for i, w := range want {
		if got := units[i].Path.String(); got != w.path {
			t.Errorf("unit %d path = %s, want %s", i, got, w.path)
		}
		if units[i].Text != w.text {
			t.Errorf("unit %d text = %q, want %q", i, units[i].Text, w.text)
		}
	}
}

func TestPlanSkipsNonSourceLocales(t *testing.T) {
	record := productRecord(t)
	units := Policy{Source: "en", Rules: []Rule{{Field: "names", Kind: KindLocalizedList}}}.Plan(record)
	if len(units) != 1 || units[0].Text != "Relay" {
		t.Fatalf("Plan = %+v, want only the en entry", units)
	}
}

func TestPlanEmptyOrMissingFieldsYieldNoUnits(t *testing.T) {
	record := domain.Record{
		"summary":               "",
		"commercialDescription": []any{},
	}
	units := testPolicy().Plan(record)
	if len(units) != 0 {
		t.Fatalf("Plan = %+v, want no units", units)
	}
}

func TestPlanIgnoresUnruledFields(t *testing.T) {
	record := productRecord(t)
	record["internalNotes"] = "do not translate"
	units := testPolicy().Plan(record)
	for _, u := range units {
		if u.Path.Field == "internalNotes" {
			t.Fatalf("planned a unit for a field without a rule: %+v", u)
		}
	}
}

func TestMergeAppendsLocalizedValue(t *testing.T) {
	record := productRecord(t)
	policy := testPolicy()
	unit := Unit{Path: Path{Field: "names", Index: 0}, Text: "Relay"}

	if err := policy.Merge(record, unit, "Relé", "es"); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	names := record["names"].([]any)
	if len(names) != 3 {
		t.Fatalf("names has %d entries, want 3", len(names))
	}
	lv, ok := domain.ParseLocalizedValue(names[2])
	if !ok || lv.Locale != "es" || lv.Value != "Relé" {
		t.Fatalf("appended entry = %+v", names[2])
	}
}

func TestMergeNeverDuplicatesTargetLocale(t *testing.T) {
	record := productRecord(t)
	policy := testPolicy()
	unit := Unit{Path: Path{Field: "names", Index: 0}, Text: "Relay"}

	if err := policy.Merge(record, unit, "Relé", "es"); err != nil {
		t.Fatalf("first Merge error: %v", err)
	}
	if err := policy.Merge(record, unit, "Relé v2", "es"); err != nil {
		t.Fatalf("second Merge error: %v", err)
	}

	var es []domain.LocalizedValue
	for _, item := range record["names"].([]any) {
		if lv, ok := domain.ParseLocalizedValue(item); ok && lv.Locale == "es" {
			es = append(es, lv)
		}
	}
	if len(es) != 1 {
		t.Fatalf("found %d es entries, want 1", len(es))
	}
	if es[0].Value != "Relé" {
		t.Fatalf("es entry = %q, want the first write kept", es[0].Value)
	}
}

func TestMergeOverwritesNestedAttribute(t *testing.T) {
	record := productRecord(t)
	policy := testPolicy()
	unit := Unit{Path: Path{Field: "categoryList", Index: 0, Sub: "name"}, Text: "Relays"}

	if err := policy.Merge(record, unit, "Relés", "es"); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	cat := record["categoryList"].([]any)[0].(map[string]any)
	if cat["name"] != "Relés" {
		t.Fatalf("category name = %v, want overwritten in place", cat["name"])
	}
	if len(record["categoryList"].([]any)) != 2 {
		t.Fatal("nested merge must not append elements")
	}
}

func TestMergeOverwritesScalar(t *testing.T) {
	record := productRecord(t)
	policy := testPolicy()
	unit := Unit{Path: Path{Field: "summary", Index: -1}, Text: "Compact relay"}

	if err := policy.Merge(record, unit, "Relé compacto", "es"); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if record["summary"] != "Relé compacto" {
		t.Fatalf("summary = %v", record["summary"])
	}
}

func TestMergeRejectsUnaddressablePath(t *testing.T) {
	record := productRecord(t)
	policy := testPolicy()

	if err := policy.Merge(record, Unit{Path: Path{Field: "categoryList", Index: 9, Sub: "name"}}, "x", "es"); err == nil {
		t.Fatal("Merge accepted an out-of-range index")
	}
	if err := policy.Merge(record, Unit{Path: Path{Field: "unknown", Index: -1}}, "x", "es"); err == nil {
		t.Fatal("Merge accepted a field without a rule")
	}
}

func TestHashContentIgnoresUnruledFields(t *testing.T) {
	policy := testPolicy()
	record := productRecord(t)

	before, err := fingerprint.Digest(policy.HashContent(record))
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	record["internalNotes"] = "changed"
	record["stock"] = 42.0
	after, err := fingerprint.Digest(policy.HashContent(record))
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	if before != after {
		t.Fatal("digest changed when only unruled fields changed")
	}
}

func TestHashContentSensitiveToRuledFields(t *testing.T) {
	policy := testPolicy()
	record := productRecord(t)

	before, _ := fingerprint.Digest(policy.HashContent(record))
	record["names"].([]any)[0].(map[string]any)["value"] = "Contactor"
	after, _ := fingerprint.Digest(policy.HashContent(record))
	if before == after {
		t.Fatal("digest did not change when source content changed")
	}
}

func TestHashContentStableAcrossTranslation(t *testing.T) {
	policy := Policy{Source: "en", Rules: []Rule{{Field: "names", Kind: KindLocalizedList}}}
	record := productRecord(t)

	before, err := fingerprint.Digest(policy.HashContent(record))
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}

	translated := record.Clone()
	unit := Unit{Path: Path{Field: "names", Index: 0}, Text: "Relay"}
	if err := policy.Merge(translated, unit, "Relé", "es"); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	after, err := fingerprint.Digest(policy.HashContent(translated))
	if err != nil {
		t.Fatalf("Digest error: %v", err)
	}
	if before != after {
		t.Fatal("appending a translation moved the record to a new fingerprint")
	}
}

func TestHashContentOmitsAbsentFields(t *testing.T) {
	policy := testPolicy()
	content := policy.HashContent(domain.Record{"names": []any{}})
	if _, ok := content["summary"]; ok {
		t.Fatal("absent field was included in hash content")
	}
	if _, ok := content["categoryList"]; ok {
		t.Fatal("absent field was included in hash content")
	}
}

func TestSelectNarrowsPolicy(t *testing.T) {
	policy := testPolicy().Select("categoryList", "names", "nonexistent")
	if len(policy.Rules) != 2 {
		t.Fatalf("Select kept %d rules, want 2", len(policy.Rules))
	}
	if policy.Rules[0].Field != "names" || policy.Rules[1].Field != "categoryList" {
		t.Fatalf("Select reordered rules: %+v", policy.Rules)
	}
}
