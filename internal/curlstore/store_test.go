// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package curlstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxBuckets:      2,
		MaxBucketsHard:  4,
		MaxInstances:    2,
		DNSCacheTTL:     180 * time.Second,
		FollowRedirects: true,
		SSLVerifyPeer:   true,
		UserAgent:       "drmcore-test/1.0",
		TransferTimeout: 10 * time.Second,
	}
}

func TestInitCreatesHandlesAndGetHandleDrawsFreeSlot(t *testing.T) {
	s := New(testConfig())
	require.NoError(t, s.Init("video", 0, 2, "", "a.example.com"))

	h1, ok := s.GetHandle("video", "https://a.example.com/manifest.mpd", 0)
	require.True(t, ok)
	require.NotNil(t, h1)

	h2, ok := s.GetHandle("video", "https://a.example.com/manifest.mpd", 0)
	require.True(t, ok)
	assert.NotSame(t, h1, h2)

	_, ok = s.GetHandle("video", "https://a.example.com/manifest.mpd", 0)
	assert.False(t, ok, "both slots in stride should now be in use")
}

func TestSaveHandleReturnsSlotToPool(t *testing.T) {
	s := New(testConfig())
	require.NoError(t, s.Init("video", 0, 2, "", "a.example.com"))

	h1, ok := s.GetHandle("video", "https://a.example.com/x", 0)
	require.True(t, ok)
	_, ok = s.GetHandle("video", "https://a.example.com/x", 0)
	require.True(t, ok)
	_, ok = s.GetHandle("video", "https://a.example.com/x", 0)
	require.False(t, ok)

	s.SaveHandle("video", "https://a.example.com/x", 0, h1)
	h3, ok := s.GetHandle("video", "https://a.example.com/x", 0)
	require.True(t, ok)
	assert.Same(t, h1, h3)
}

func TestGetHandleMissesWhenHostUnknown(t *testing.T) {
	s := New(testConfig())
	_, ok := s.GetHandle("video", "https://never-initialized.example.com/x", 0)
	assert.False(t, ok)
}

func TestEvictionSkipsBucketsWithInUseSlots(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBuckets = 1
	cfg.MaxBucketsHard = 2
	s := New(cfg)

	require.NoError(t, s.Init("video", 0, 2, "", "busy.example.com"))
	h, ok := s.GetHandle("video", "https://busy.example.com/x", 0)
	require.True(t, ok)
	require.NotNil(t, h)

	// Second bucket pushes us over MaxBuckets; busy.example.com has an
	// in-use slot so it must not be evicted, and with no removable bucket
	// effMax should grow instead.
	require.NoError(t, s.Init("video", 0, 2, "", "idle.example.com"))

	assert.Equal(t, 2, s.lru.Len())
	_, ok = s.lru.Peek("busy.example.com")
	assert.True(t, ok, "bucket with an in-use slot must survive eviction")
}

func TestEvictionRemovesIdleBucketWhenOverCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBuckets = 1
	cfg.MaxBucketsHard = 1
	s := New(cfg)

	require.NoError(t, s.Init("video", 0, 1, "", "first.example.com"))
	require.NoError(t, s.Init("video", 0, 1, "", "second.example.com"))

	assert.Equal(t, 1, s.lru.Len())
	_, ok := s.lru.Peek("first.example.com")
	assert.False(t, ok, "idle bucket should have been evicted for the newer one")
	_, ok = s.lru.Peek("second.example.com")
	assert.True(t, ok)
}
