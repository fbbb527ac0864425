package geoip

import (
	"context"
	"sync"
	"time"

	"github.com/netsweep/netsweep/internal/logging"
)

// cacheEntry pairs a record with the time it was fetched. Entries are never
// evicted; staleness only disables the skip-fetch fast path.
type cacheEntry struct {
	record    Record
	fetchedAt time.Time
}

// CacheStats summarizes the cache contents for the debug endpoint.
type CacheStats struct {
	TotalEntries int `json:"total_entries"`
	ValidEntries int `json:"valid_entries"`
	StaleEntries int `json:"stale_entries"`
}

// DumpEntry is a cached record augmented with its fetch timestamp and
// current validity, for external read-only inspection.
type DumpEntry struct {
	Record
	CachedAt int64 `json:"cached_at"`
	IsValid  bool  `json:"is_valid"`
}

// Enricher enriches IP addresses with GeoIP metadata. Results are cached
// with a TTL to avoid redundant lookups and provider rate limits; expired
// entries remain usable as a fallback when a refresh fails.
type Enricher struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *logging.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry

	// now is replaceable for tests.
	now func() time.Time
}

// NewEnricher creates an enricher backed by the given fetcher. Entries
// fetched more than ttl ago stop serving the fast path but are retained.
func NewEnricher(fetcher Fetcher, ttl time.Duration) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logging.Default().WithComponent("geoip"),
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// lookup returns the cached entry for ip and whether it is still valid.
func (e *Enricher) lookup(ip string) (cacheEntry, bool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.cache[ip]
	if !ok {
		return cacheEntry{}, false, false
	}
	return entry, true, e.now().Sub(entry.fetchedAt) < e.ttl
}

// Enrich returns GeoIP metadata for a single IP. A valid cache entry is
// returned without a network call. Otherwise one bounded fetch is made; on
// success the entry is overwritten with the fresh record, on failure the
// previous record is returned even if stale, or an empty record when the IP
// has never been resolved. Enrich never fails: lookup errors are absorbed
// into the fallback value.
func (e *Enricher) Enrich(ctx context.Context, ip string) Record {
	entry, cached, valid := e.lookup(ip)
	if cached && valid {
		e.logger.Debug("Using cached GeoIP data", "ip", ip)
		return entry.record
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	raw, err := e.fetcher.Fetch(fetchCtx, ip)
	if err != nil {
		if cached {
			e.logger.Debug("Fetch failed, using stale GeoIP data", "ip", ip, "error", err)
			return entry.record
		}
		e.logger.Debug("Fetch failed, no cached GeoIP data", "ip", ip, "error", err)
		return EmptyRecord()
	}

	record := Record{
		ASN:            raw.ASN,
		ISP:            raw.ISP,
		Org:            raw.Org,
		Country:        raw.Country,
		City:           raw.City,
		Region:         raw.Region,
		ConnectionType: Classify(raw.ISP, raw.Org, raw.ASN),
	}

	e.mu.Lock()
	e.cache[ip] = cacheEntry{record: record, fetchedAt: e.now()}
	e.mu.Unlock()

	e.logger.Debug("Cached GeoIP data", "ip", ip, "connection_type", record.ConnectionType)
	return record
}

// EnrichBatch enriches every unique input IP concurrently and returns a
// complete mapping: each input IP maps to a record from a cache hit, fresh
// fetch, stale fallback, or the empty record. No input IP is ever missing
// from the output.
func (e *Enricher) EnrichBatch(ctx context.Context, ips []string) map[string]Record {
	unique := make([]string, 0, len(ips))
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		unique = append(unique, ip)
	}

	results := make(map[string]Record, len(unique))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ip := range unique {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			record := e.Enrich(ctx, ip)
			mu.Lock()
			results[ip] = record
			mu.Unlock()
		}(ip)
	}
	wg.Wait()

	return results
}

// Stats returns total, valid, and stale entry counts.
func (e *Enricher) Stats() CacheStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := CacheStats{TotalEntries: len(e.cache)}
	now := e.now()
	for _, entry := range e.cache {
		if now.Sub(entry.fetchedAt) < e.ttl {
			stats.ValidEntries++
		}
	}
	stats.StaleEntries = stats.TotalEntries - stats.ValidEntries
	return stats
}

// Dump returns every cached record with its fetch timestamp and validity
// flag, keyed by IP.
func (e *Enricher) Dump() map[string]DumpEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	dump := make(map[string]DumpEntry, len(e.cache))
	for ip, entry := range e.cache {
		dump[ip] = DumpEntry{
			Record:   entry.record,
			CachedAt: entry.fetchedAt.Unix(),
			IsValid:  now.Sub(entry.fetchedAt) < e.ttl,
		}
	}
	return dump
}
