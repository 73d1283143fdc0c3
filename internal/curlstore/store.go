// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package curlstore implements the process-wide pooled HTTP connection
// store: a bounded LRU of per-host buckets, each holding a fixed array of
// reusable handle slots shared across instance kinds (video, audio, AES,
// DAI). It is the Go equivalent of a libcurl easy-handle pool, built on
// net/http and a shared *http.Transport per bucket instead of raw curl
// shares.
package curlstore

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/metrics"
)

// Owner identifies the subsystem holding slots in a bucket (video, audio,
// aes, dai, ...). It is opaque to the store.
type Owner string

// Handle is a pooled transfer handle: an *http.Client bound to its
// bucket's shared transport, plus the slot bookkeeping the store needs to
// return it to the pool.
type Handle struct {
	Client *http.Client
	host   string
	slot   int
}

type slot struct {
	handle *Handle
	inUse  bool
}

// bucket is the per-host cache: a shared transport (the Go analogue of a
// curl share-handle for DNS/TLS session reuse) plus an array of reusable
// slots. maxInstances × 2 slots accommodate a primary and a background
// user of each instance kind, per GetHandle's (idx, idx+maxInstances, ...)
// addressing scheme.
type bucket struct {
	host      string
	transport http.RoundTripper
	slots     []slot
	lastUsed  time.Time
}

// userAgentTransport stamps the configured User-Agent on every request that
// doesn't already carry one, the net/http equivalent of libcurl's
// CURLOPT_USERAGENT applied once per share rather than per request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

func (b *bucket) anyInUse() bool {
	for _, s := range b.slots {
		if s.inUse {
			return true
		}
	}
	return false
}

func (b *bucket) slotsInUse() int {
	n := 0
	for _, s := range b.slots {
		if s.inUse {
			n++
		}
	}
	return n
}

// BucketSnapshot is a read-only view of one host bucket's occupancy.
type BucketSnapshot struct {
	Host        string
	SlotsTotal  int
	SlotsInUse  int
	LastUsed    time.Time
}

// Config fixes the store's pool sizing and per-handle transport options.
type Config struct {
	MaxBuckets      int
	MaxBucketsHard  int
	MaxInstances    int
	DNSCacheTTL     time.Duration
	FollowRedirects bool
	SSLVerifyPeer   bool
	UserAgent       string
	TransferTimeout time.Duration
}

// Store is the process-singleton curl connection store.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	effMax int
	lru    *simplelru.LRU[string, *bucket]
}

// New builds a Store. Pass a very large simplelru capacity so the built-in
// eviction never fires; eviction is driven entirely by evictIfNeeded,
// which (unlike a strict LRU) must skip buckets with an in-use slot.
func New(cfg Config) *Store {
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 2
	}
	if cfg.MaxBuckets <= 0 {
		cfg.MaxBuckets = 8
	}
	if cfg.MaxBucketsHard <= 0 {
		cfg.MaxBucketsHard = cfg.MaxBuckets * 4
	}
	l, _ := simplelru.NewLRU[string, *bucket](1<<20, nil)
	return &Store{cfg: cfg, effMax: cfg.MaxBuckets, lru: l}
}

// Init ensures count handle slots exist in owner's slot range
// [startIdx, startIdx+count) for host, creating host's bucket if absent.
// proxy, when non-empty, is applied to every handle created in the bucket.
func (s *Store) Init(owner Owner, startIdx, count int, proxy, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.getOrCreateBucket(host, proxy)
	needed := startIdx + count
	if needed > len(b.slots) {
		grown := make([]slot, needed)
		copy(grown, b.slots)
		b.slots = grown
	}
	for i := startIdx; i < startIdx+count; i++ {
		if b.slots[i].handle == nil {
			b.slots[i].handle = s.newHandle(b, i)
		}
	}
	log.WithComponent("curlstore").Debug().
		Str("host", host).Str("owner", string(owner)).Int("count", count).
		Msg("curlstore.init")
	return nil
}

// Term returns owner's handles in [startIdx, startIdx+count) to the pool
// (marks them free); if host's bucket no longer exists this is a no-op.
func (s *Store) Term(owner Owner, startIdx, count int, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.lru.Get(host)
	if !ok {
		return
	}
	for i := startIdx; i < startIdx+count && i < len(b.slots); i++ {
		b.slots[i].inUse = false
	}
}

// GetHandle resolves host from rawURL and draws the first free slot in
// owner's instance-kind stride (idx, idx+maxInstances, idx+2*maxInstances,
// ...), per the pool protocol. It returns (nil, false) when no slot is
// free; the caller is then expected to create a handle outside the pool.
func (s *Store) GetHandle(owner Owner, rawURL string, idx int) (*Handle, bool) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.lru.Get(host)
	if !ok {
		metrics.CurlHandleWaitTotal.WithLabelValues("fresh").Inc()
		return nil, false
	}
	b.lastUsed = time.Now()

	for i := idx; i < len(b.slots); i += s.cfg.MaxInstances {
		if !b.slots[i].inUse {
			b.slots[i].inUse = true
			if b.slots[i].handle == nil {
				b.slots[i].handle = s.newHandle(b, i)
			}
			metrics.CurlHandleWaitTotal.WithLabelValues("pooled").Inc()
			return b.slots[i].handle, true
		}
	}
	metrics.CurlHandleWaitTotal.WithLabelValues("fresh").Inc()
	return nil, false
}

// SaveHandle returns handle to its slot, marking it free again.
func (s *Store) SaveHandle(owner Owner, rawURL string, idx int, handle *Handle) {
	if handle == nil {
		return
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.lru.Get(host)
	if !ok {
		return
	}
	for i := idx; i < len(b.slots); i += s.cfg.MaxInstances {
		if b.slots[i].handle == handle {
			b.slots[i].inUse = false
			return
		}
	}
}

func (s *Store) getOrCreateBucket(host, proxy string) *bucket {
	if b, ok := s.lru.Get(host); ok {
		b.lastUsed = time.Now()
		return b
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: s.cfg.MaxInstances * 2,
		IdleConnTimeout:     s.cfg.DNSCacheTTL,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	if !s.cfg.SSLVerifyPeer {
		transport.TLSClientConfig = insecureTLSConfig()
	}

	var rt http.RoundTripper = transport
	if s.cfg.UserAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: s.cfg.UserAgent}
	}
	b := &bucket{host: host, transport: rt, lastUsed: time.Now(), slots: make([]slot, s.cfg.MaxInstances*2)}
	s.lru.Add(host, b)
	metrics.CurlBucketsGauge.Set(float64(s.lru.Len()))
	s.evictIfNeeded(host)
	return b
}

// evictIfNeeded keeps the bucket count at or below effMax except
// transiently when every bucket other than keep (the one just created) is
// in use, in which case effMax grows by one (capped at MaxBucketsHard)
// rather than evicting a bucket with live work in flight.
func (s *Store) evictIfNeeded(keep string) {
	if s.lru.Len() <= s.effMax {
		return
	}

	for _, host := range s.lru.Keys() {
		b, ok := s.lru.Peek(host)
		if !ok || host == keep || b.anyInUse() {
			continue
		}
		s.lru.Remove(host)
		metrics.CurlBucketEvictionsTotal.WithLabelValues("evicted").Inc()
		metrics.CurlBucketsGauge.Set(float64(s.lru.Len()))
		log.WithComponent("curlstore").Debug().Str("host", b.host).Msg("curlstore.bucket_evicted")
		return
	}

	if s.effMax < s.cfg.MaxBucketsHard {
		s.effMax++
		metrics.CurlBucketEvictionsTotal.WithLabelValues("grew").Inc()
		log.WithComponent("curlstore").Warn().Int("effective_max", s.effMax).
			Msg("curlstore.max_buckets_grown")
	}
}

// Snapshot returns a read-only occupancy view of every live bucket, for a
// diagnostics surface rather than for pool management.
func (s *Store) Snapshot() []BucketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]BucketSnapshot, 0, s.lru.Len())
	for _, host := range s.lru.Keys() {
		b, ok := s.lru.Peek(host)
		if !ok {
			continue
		}
		out = append(out, BucketSnapshot{
			Host:       b.host,
			SlotsTotal: len(b.slots),
			SlotsInUse: b.slotsInUse(),
			LastUsed:   b.lastUsed,
		})
	}
	return out
}

func (s *Store) newHandle(b *bucket, idx int) *Handle {
	client := &http.Client{
		Transport: b.transport,
		Timeout:   s.cfg.TransferTimeout,
	}
	if !s.cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Handle{Client: client, host: b.host, slot: idx}
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
