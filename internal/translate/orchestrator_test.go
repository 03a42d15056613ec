package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"prodtrans/internal/domain"
	"prodtrans/internal/fields"
	"prodtrans/internal/providers/intento"
)

const recordJSON = `{
	"app": "ACME",
	"catalogNumber": "XR-2040",
	"code": "XR2040",
	"productLifeCycleStatus": "ACTIVE",
	"lastModified": "2024-03-19T08:30:00",
	"internalNotes": "do not ship before Q3",
	"names": [{"value": "Industrial relay", "isocode": "en"}],
	"technicalDescription": [],
	"categoryList": [{"id": "cat-9", "name": "Relays", "path": "Components/Relays"}]
}`

func testRecord(t *testing.T) domain.Record {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(recordJSON), &m); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return domain.Record(m)
}

func cacheKey(id domain.Identity, fingerprint string) string {
	return id.Tenant + "/" + id.CatalogNumber + "/" + fingerprint
}

type fakeCache struct {
	mu        sync.Mutex
	entries   map[string]*domain.CacheEntry
	lookupErr error

	lookups int
	inserts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.CacheEntry)}
}

func (f *fakeCache) Lookup(_ context.Context, id domain.Identity, fingerprint string) (*domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	entry, ok := f.entries[cacheKey(id, fingerprint)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (f *fakeCache) InsertIfAbsent(_ context.Context, entry *domain.CacheEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	key := cacheKey(domain.Identity{Tenant: entry.Tenant, CatalogNumber: entry.CatalogNumber}, entry.Fingerprint)
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	entry.ID = int64(len(f.entries) + 1)
	entry.CreatedAt = time.Now().UTC()
	f.entries[key] = entry
	return true, nil
}

func (f *fakeCache) Recent(context.Context, int) ([]domain.CacheEntry, error) {
	return nil, nil
}

func (f *fakeCache) ByCatalogNumber(context.Context, string) ([]domain.CacheEntry, error) {
	return nil, nil
}

func (f *fakeCache) Stats(context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{}, nil
}

type fakeJobs struct {
	mu    sync.Mutex
	calls []Request
	fail  error
}

func (f *fakeJobs) Run(_ context.Context, req Request) (*JobResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.fail != nil {
		return nil, f.fail
	}
	return &JobResult{
		Results:  []string{"XL-" + req.Text[0]},
		Provider: intento.ProviderInfo{Name: "Fake", Vendor: "Test"},
	}, nil
}

func (f *fakeJobs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(cache domain.CacheRepository, jobs JobRunner) *Service {
	return NewService(cache, jobs, fields.Default(), ServiceConfig{TargetLocale: "de"}, nil)
}

func localizedValue(t *testing.T, record domain.Record, field, locale string) string {
	t.Helper()
	list, ok := record[field].([]any)
	if !ok {
		t.Fatalf("field %q is not a list", field)
	}
	for _, item := range list {
		lv, ok := domain.ParseLocalizedValue(item)
		if ok && lv.Locale == locale {
			return lv.Value
		}
	}
	t.Fatalf("field %q has no %q entry: %v", field, locale, list)
	return ""
}

func TestTranslateRecordMissCommitsEntry(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)

	res, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("TranslateRecord() error = %v", err)
	}
	if res.CacheHit {
		t.Fatalf("CacheHit = true, want false on first translation")
	}
	if jobs.callCount() != 3 {
		t.Fatalf("job calls = %d, want 3", jobs.callCount())
	}
	for _, call := range jobs.calls {
		if call.From != "en" || call.To != "de" {
			t.Fatalf("job locales = %s->%s, want en->de", call.From, call.To)
		}
	}

	if got := localizedValue(t, res.Record, "names", "de"); got != "XL-Industrial relay" {
		t.Fatalf("translated name = %q, want XL-Industrial relay", got)
	}
	category := res.Record["categoryList"].([]any)[0].(map[string]any)
	if category["name"] != "XL-Relays" || category["path"] != "XL-Components/Relays" {
		t.Fatalf("category = %v, want translated name and path", category)
	}
	if category["id"] != "cat-9" {
		t.Fatalf("category id = %v, want cat-9 untouched", category["id"])
	}

	if srcNames := record["names"].([]any); len(srcNames) != 1 {
		t.Fatalf("source names length = %d, want 1 (source must stay unmodified)", len(srcNames))
	}

	if res.Entry == nil {
		t.Fatalf("Entry = nil, want committed entry")
	}
	if res.Entry.Code != "XR2040" || res.Entry.Status != "ACTIVE" {
		t.Fatalf("entry code/status = %q/%q, want XR2040/ACTIVE", res.Entry.Code, res.Entry.Status)
	}
	wantModified := time.Date(2024, 3, 19, 8, 30, 0, 0, time.UTC)
	if !res.Entry.SourceModified.Equal(wantModified) {
		t.Fatalf("SourceModified = %v, want %v", res.Entry.SourceModified, wantModified)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cached entries = %d, want 1", len(cache.entries))
	}
}

func TestTranslateRecordServesCacheHit(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)

	first, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("first TranslateRecord() error = %v", err)
	}
	calls := jobs.callCount()

	second, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("second TranslateRecord() error = %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("CacheHit = false, want true on unchanged record")
	}
	if jobs.callCount() != calls {
		t.Fatalf("job calls = %d, want %d (cache hit must not translate)", jobs.callCount(), calls)
	}
	if second.Fingerprint != first.Fingerprint {
		t.Fatalf("fingerprint changed: %q vs %q", second.Fingerprint, first.Fingerprint)
	}
	if got := localizedValue(t, second.Record, "names", "de"); got != "XL-Industrial relay" {
		t.Fatalf("cached name = %q, want XL-Industrial relay", got)
	}
}

func TestTranslateRecordRetranslatesChangedContent(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)

	first, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("first TranslateRecord() error = %v", err)
	}

	record["names"].([]any)[0].(map[string]any)["value"] = "Industrial relay MK2"
	second, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("second TranslateRecord() error = %v", err)
	}
	if second.CacheHit {
		t.Fatalf("CacheHit = true, want false after content change")
	}
	if second.Fingerprint == first.Fingerprint {
		t.Fatalf("fingerprint unchanged after content change")
	}
	if got := localizedValue(t, second.Record, "names", "de"); got != "XL-Industrial relay MK2" {
		t.Fatalf("translated name = %q, want XL-Industrial relay MK2", got)
	}
	if len(cache.entries) != 2 {
		t.Fatalf("cached entries = %d, want 2", len(cache.entries))
	}
}

func TestTranslateRecordIgnoresUnruledChanges(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)

	if _, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record}); err != nil {
		t.Fatalf("first TranslateRecord() error = %v", err)
	}
	calls := jobs.callCount()

	record["internalNotes"] = "shipped early after all"
	record["lastModified"] = "2024-04-01T00:00:00"
	second, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("second TranslateRecord() error = %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("CacheHit = false, want true when only unruled fields changed")
	}
	if jobs.callCount() != calls {
		t.Fatalf("job calls = %d, want %d", jobs.callCount(), calls)
	}
}

func TestTranslateRecordUnitFailureSkipsCache(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{fail: fmt.Errorf("translate: poll: %w", domain.ErrProviderResponse)}
	svc := newTestService(cache, jobs)

	_, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: testRecord(t)})
	if !errors.Is(err, domain.ErrProviderResponse) {
		t.Fatalf("TranslateRecord() error = %v, want ErrProviderResponse", err)
	}
	if cache.inserts != 0 {
		t.Fatalf("inserts = %d, want 0 (failed records must not be cached)", cache.inserts)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("cached entries = %d, want 0", len(cache.entries))
	}
}

type racingCache struct {
	*fakeCache
	winner *domain.CacheEntry
}

func (r *racingCache) Lookup(ctx context.Context, id domain.Identity, fingerprint string) (*domain.CacheEntry, error) {
	r.mu.Lock()
	first := r.lookups == 0
	r.lookups++
	r.mu.Unlock()
	if first {
		return nil, domain.ErrNotFound
	}
	return r.winner, nil
}

func (r *racingCache) InsertIfAbsent(context.Context, *domain.CacheEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	return false, nil
}

func TestTranslateRecordLostRaceServesWinner(t *testing.T) {
	winnerRecord := testRecord(t)
	winnerRecord["names"] = []any{
		map[string]any{"value": "Industrial relay", "isocode": "en"},
		map[string]any{"value": "Industrierelais", "isocode": "de"},
	}
	cache := &racingCache{
		fakeCache: newFakeCache(),
		winner:    &domain.CacheEntry{ID: 41, Tenant: "ACME", CatalogNumber: "XR-2040", Translated: winnerRecord},
	}
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)

	res, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: testRecord(t)})
	if err != nil {
		t.Fatalf("TranslateRecord() error = %v", err)
	}
	if !res.CacheHit {
		t.Fatalf("CacheHit = false, want true after losing the insert race")
	}
	if res.Entry == nil || res.Entry.ID != 41 {
		t.Fatalf("Entry = %+v, want the committed winner", res.Entry)
	}
	if got := localizedValue(t, res.Record, "names", "de"); got != "Industrierelais" {
		t.Fatalf("name = %q, want the winner's Industrierelais", got)
	}
	if jobs.callCount() == 0 {
		t.Fatalf("job calls = 0, want the losing translation to have run")
	}
}

func TestTranslateRecordStoreFailureIsFatal(t *testing.T) {
	cache := newFakeCache()
	cache.lookupErr = fmt.Errorf("connect: %w", domain.ErrStoreUnavailable)
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)

	_, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: testRecord(t)})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("TranslateRecord() error = %v, want ErrStoreUnavailable", err)
	}
	if jobs.callCount() != 0 {
		t.Fatalf("job calls = %d, want 0 when the store is down", jobs.callCount())
	}
}

func TestTranslateRecordMissingIdentity(t *testing.T) {
	svc := newTestService(newFakeCache(), &fakeJobs{})
	record := testRecord(t)
	delete(record, domain.FieldTenant)

	_, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("TranslateRecord() error = %v, want ErrMissingIdentity", err)
	}
}

func TestTranslateRecordRejectsSourceTarget(t *testing.T) {
	jobs := &fakeJobs{}
	svc := newTestService(newFakeCache(), jobs)

	_, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: testRecord(t), Target: "en"})
	if !errors.Is(err, domain.ErrInvalidTarget) {
		t.Fatalf("TranslateRecord() error = %v, want domain.ErrInvalidTarget", err)
	}
	if jobs.callCount() != 0 {
		t.Fatalf("job calls = %d, want 0", jobs.callCount())
	}
}

func TestTranslateRecordNarrowsToRequestedFields(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)

	res, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record, Fields: []string{"names"}})
	if err != nil {
		t.Fatalf("TranslateRecord() error = %v", err)
	}
	if jobs.callCount() != 1 {
		t.Fatalf("job calls = %d, want 1 for the names field alone", jobs.callCount())
	}

	full, err := svc.Fingerprint(record, nil)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if res.Fingerprint == full {
		t.Fatalf("narrowed fingerprint equals the full-policy fingerprint")
	}

	category := res.Record["categoryList"].([]any)[0].(map[string]any)
	if category["name"] != "Relays" {
		t.Fatalf("category name = %v, want untouched Relays", category["name"])
	}
}

func TestTranslateRecordNoUnitsStillCommits(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)
	record := testRecord(t)
	record["names"] = []any{}
	delete(record, "categoryList")

	res, err := svc.TranslateRecord(context.Background(), RecordRequest{Record: record})
	if err != nil {
		t.Fatalf("TranslateRecord() error = %v", err)
	}
	if jobs.callCount() != 0 {
		t.Fatalf("job calls = %d, want 0 for a record with nothing to translate", jobs.callCount())
	}
	if res.CacheHit {
		t.Fatalf("CacheHit = true, want false")
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cached entries = %d, want 1", len(cache.entries))
	}
}

func TestTranslateRecordConcurrentCallsCommitOnce(t *testing.T) {
	cache := newFakeCache()
	jobs := &fakeJobs{}
	svc := newTestService(cache, jobs)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	results := make([]*RecordResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.TranslateRecord(context.Background(), RecordRequest{Record: testRecord(t)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if got := localizedValue(t, results[i].Record, "names", "de"); got != "XL-Industrial relay" {
			t.Fatalf("caller %d name = %q, want XL-Industrial relay", i, got)
		}
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cached entries = %d, want exactly 1", len(cache.entries))
	}
}
