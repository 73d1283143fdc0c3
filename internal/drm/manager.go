// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/drmcore/internal/cache"
	"github.com/ManuGH/drmcore/internal/config"
	"github.com/ManuGH/drmcore/internal/curlstore"
	"github.com/ManuGH/drmcore/internal/drm/cdm"
	"github.com/ManuGH/drmcore/internal/drmerrors"
	"github.com/ManuGH/drmcore/internal/eventmgr"
	"github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/metrics"
	"github.com/ManuGH/drmcore/internal/resilience"
	"golang.org/x/time/rate"
)

// defaultLicenseRPS and defaultLicenseBurst bound how hard the Session
// Manager is allowed to hammer a single license-server host.
const (
	defaultLicenseRPS   = 10
	defaultLicenseBurst = 20
)

// ManagerState gates whether createDrmSession accepts new work.
type ManagerState int

const (
	StateInactive ManagerState = iota
	StateActive
)

// SecurityManager is the optional platform security-manager path: when
// present and a helper exports drm-metadata, license acquisition is
// delegated to it instead of going over HTTP via the Curl Store.
type SecurityManager interface {
	RequestLicense(ctx context.Context, drmMetadata string, req LicenseRequest) (licenseBuf []byte, externalSessionID string, err error)
	NotifyActive(externalSessionID string)
	ReleaseSession(externalSessionID string)
	SetVideoWindowSize(w, h int)
	SetPlaybackSpeedState(speed float64, pos time.Duration)
}

// SessionManager is the heart of the core: it turns a DrmHelper into a
// cached, ready DrmSession, acquiring license data over HTTP (or via a
// SecurityManager) as needed.
type SessionManager struct {
	mu    sync.Mutex
	slots []*SessionSlot
	state ManagerState

	cfg     *config.Store
	curl    *curlstore.Store
	events  *eventmgr.Manager
	breaker *resilience.CircuitBreaker
	secMgr  SecurityManager

	httpClient *http.Client

	tokenCache cache.Cache
	tokenFetch func(ctx context.Context) (string, error)

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	curlAbort           atomic.Bool
	licenseRequestAbort atomic.Bool
}

// NewSessionManager builds a SessionManager with slotCount slots
// (clamped to [1,30]) and the ambient dependencies it drives work
// through.
func NewSessionManager(slotCount int, cfg *config.Store, curl *curlstore.Store, events *eventmgr.Manager, secMgr SecurityManager) *SessionManager {
	if slotCount < 1 {
		slotCount = 1
	}
	if slotCount > 30 {
		slotCount = 30
	}
	slots := make([]*SessionSlot, slotCount)
	for i := range slots {
		slots[i] = &SessionSlot{}
	}

	m := &SessionManager{
		slots:  slots,
		state:  StateInactive,
		cfg:    cfg,
		curl:   curl,
		events: events,
		secMgr: secMgr,
		breaker: resilience.NewCircuitBreaker(
			"drm_license_server", 3, 5, 60*time.Second, 30*time.Second,
		),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokenCache: cache.NewMemoryCache(0),
		limiters:   make(map[string]*rate.Limiter),
	}
	m.tokenFetch = m.fetchAccessToken
	return m
}

// SetSessionMgrState gates new session creation.
func (m *SessionManager) SetSessionMgrState(s ManagerState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// SetCurlAbort arms/disarms the cooperative cancellation hook consulted by
// in-flight license transfers.
func (m *SessionManager) SetCurlAbort(v bool) { m.curlAbort.Store(v) }

// SetLicenseRequestAbort arms/disarms license-request cancellation.
func (m *SessionManager) SetLicenseRequestAbort(v bool) { m.licenseRequestAbort.Store(v) }

// SetVideoWindowSize forwards to the security manager when one holds an
// active session.
func (m *SessionManager) SetVideoWindowSize(w, h int) {
	if m.secMgr != nil {
		m.secMgr.SetVideoWindowSize(w, h)
	}
}

// SetPlaybackSpeedState forwards to the security manager when one holds
// an active session.
func (m *SessionManager) SetPlaybackSpeedState(speed float64, pos time.Duration) {
	if m.secMgr != nil {
		m.secMgr.SetPlaybackSpeedState(speed, pos)
	}
}

// SlotSnapshot is a read-only view of one session slot, for a diagnostics
// surface rather than for session management.
type SlotSnapshot struct {
	Primary   bool
	Failed    bool
	HasSess   bool
	SessState string
	LastUse   time.Time
}

// Snapshot returns a read-only view of every slot's current occupancy.
func (m *SessionManager) Snapshot() []SlotSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SlotSnapshot, len(m.slots))
	for i, sl := range m.slots {
		sl.mu.Lock()
		out[i] = SlotSnapshot{
			Primary: sl.Primary,
			Failed:  sl.Failed,
			HasSess: sl.Session != nil,
			LastUse: sl.LastUse,
		}
		if sl.Session != nil {
			out[i].SessState = sl.Session.State().String()
		}
		sl.mu.Unlock()
	}
	return out
}

// IsKeyIdUsable reports true iff no slot holds kid with its failed flag
// set.
func (m *SessionManager) IsKeyIdUsable(kid []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sl := range m.slots {
		sl.mu.Lock()
		failed := sl.Failed && sl.ownsKeyID(kid)
		sl.mu.Unlock()
		if failed {
			return false
		}
	}
	return true
}

// Decrypt looks up the slot holding kid and applies its session's
// output-protection gate. It returns an error if no ready session owns
// kid, or if the session's HDCP/key-ready gate rejects the attempt.
func (m *SessionManager) Decrypt(kid []byte, linkSatisfiesHDCP22 bool) error {
	m.mu.Lock()
	var sess *DrmSession
	for _, sl := range m.slots {
		sl.mu.Lock()
		if sl.Session != nil && sl.ownsKeyID(kid) {
			sess = sl.Session
		}
		sl.mu.Unlock()
		if sess != nil {
			break
		}
	}
	m.mu.Unlock()

	if sess == nil {
		return drmerrors.New(drmerrors.DrmKeyUpdateFailed, fmt.Errorf("decrypt: no session for key id"))
	}
	if sess.State() != StateReady {
		return drmerrors.New(drmerrors.DrmKeyUpdateFailed, fmt.Errorf("decrypt: session not ready"))
	}
	if err := sess.Decrypt(linkSatisfiesHDCP22); err != nil {
		return drmerrors.New(drmerrors.HDCPComplianceError, err)
	}
	return nil
}

// CreateDrmSession is the entry point described as the heart of the core:
// slot selection, session reuse, initialization, license acquisition and
// key processing. It returns (nil, nil) when the manager is inactive.
func (m *SessionManager) CreateDrmSession(ctx context.Context, helper DrmHelper) (*DrmSession, *drmerrors.DrmError) {
	m.mu.Lock()
	if m.state == StateInactive {
		m.mu.Unlock()
		return nil, nil
	}
	slot := m.selectSlotLocked(helper)
	m.mu.Unlock()

	slot.mu.Lock()
	primary := helper.PrimaryKeyID()

	if slot.Session != nil && slot.Session.OcdmSystemID == helper.OcdmSystemID() && bytesEqual(slot.Session.KeyID, primary) {
		sess := slot.Session
		switch sess.State() {
		case StateReady:
			slot.mu.Unlock()
			if m.secMgr != nil && sess.ExternalSessionID != "" {
				m.secMgr.NotifyActive(sess.ExternalSessionID)
			}
			metrics.SessionsReusedTotal.WithLabelValues(helper.OcdmSystemID()).Inc()
			return sess, nil
		case StateInit, StatePending:
			slot.mu.Unlock()
			return sess, nil
		case StateError, StateClosed:
			// fall through: stale session, discard and recreate below.
		default:
			if sess.WaitReady(helper.KeyProcessTimeout()) {
				slot.mu.Unlock()
				return sess, nil
			}
			slot.Failed = true
			slot.mu.Unlock()
			return nil, drmerrors.New(drmerrors.DrmKeyUpdateFailed, nil)
		}
	}

	if slot.Failed && slot.ownsKeyID(primary) {
		slot.mu.Unlock()
		return nil, drmerrors.New(drmerrors.CorruptDrmMetadata, fmt.Errorf("slot previously failed for this key-id"))
	}

	sess, derr := m.initSessionLocked(ctx, slot, helper)
	slot.mu.Unlock()

	if derr != nil {
		m.emitMetadataEvent(derr)
		return nil, derr
	}
	metrics.SessionsCreatedTotal.WithLabelValues(helper.OcdmSystemID()).Inc()
	return sess, nil
}

// selectSlotLocked finds the slot already bound to helper's key-id, or
// else reclaims the least-recently-used non-primary slot. Callers must
// hold m.mu.
func (m *SessionManager) selectSlotLocked(helper DrmHelper) *SessionSlot {
	primary := helper.PrimaryKeyID()

	for _, sl := range m.slots {
		sl.mu.Lock()
		owns := sl.ownsKeyID(primary)
		sl.mu.Unlock()
		if owns {
			return sl
		}
	}

	var chosen *SessionSlot
	for _, sl := range m.slots {
		sl.mu.Lock()
		isPrimary := sl.Primary
		lastUse := sl.LastUse
		sl.mu.Unlock()
		if isPrimary {
			continue
		}
		if chosen == nil {
			chosen = sl
			continue
		}
		chosen.mu.Lock()
		chosenLastUse := chosen.LastUse
		chosen.mu.Unlock()
		if lastUse.Before(chosenLastUse) {
			chosen = sl
		}
	}
	if chosen == nil {
		chosen = m.slots[0]
	}

	chosen.mu.Lock()
	all := [][]byte{primary}
	all = append(all, helper.AuxiliaryKeyIDs()...)
	chosen.KeyIDs = all
	chosen.LastUse = time.Now()
	chosen.mu.Unlock()
	return chosen
}

// initSessionLocked binds a fresh CDM session to helper, waits for its
// challenge and drives license acquisition through to a ready key. Callers
// must hold slot.mu.
func (m *SessionManager) initSessionLocked(ctx context.Context, slot *SessionSlot, helper DrmHelper) (*DrmSession, *drmerrors.DrmError) {
	initData, err := helper.CreateInitData()
	if err != nil {
		return nil, drmerrors.New(drmerrors.DrmInitFailed, err)
	}

	c := cdm.NewSession()
	sess := newSession(helper, helper.PrimaryKeyID(), c)
	slot.Session = sess
	slot.Failed = false

	if helper.IsExternalLicense() {
		// External-license schemes (VGDRM's key-in-manifest path, the
		// vanilla AES clear-decrypt bypass, or anything the platform
		// security manager owns) never drive this façade's
		// challenge/key-update pipeline — some have no init data to hand
		// it at all. Mark the session ready without touching the CDM.
		sess.setState(StateReady)
		return sess, nil
	}

	if err := c.GenerateSession(ctx, initData); err != nil {
		slot.Failed = true
		sess.setState(StateError)
		return nil, drmerrors.New(drmerrors.DrmDataBindFailed, err)
	}

	if !c.WaitForState(cdm.StateAwaitingChallenge, helper.LicenseGenerateTimeout()) {
		slot.Failed = true
		sess.setState(StateError)
		return nil, drmerrors.New(drmerrors.DrmChallengeFailed, nil)
	}
	// This façade has no native CDM producing a challenge asynchronously on
	// its own thread, so the manager plays that role instead, handing the
	// init data through as the challenge payload.
	go c.DeliverChallenge(initData)
	if !c.WaitForState(cdm.StateChallengeReady, helper.LicenseGenerateTimeout()) {
		slot.Failed = true
		sess.setState(StateError)
		return nil, drmerrors.New(drmerrors.DrmChallengeFailed, nil)
	}

	if err := m.acquireLicense(ctx, helper, sess); err != nil {
		slot.Failed = true
		sess.setState(StateError)
		return nil, err
	}

	sess.setState(StateReady)
	return sess, nil
}

// acquireLicense runs the challenge-to-key pipeline: build the license
// request, route it through the security manager or HTTP with retry,
// transform the response and hand it to the CDM for key processing.
func (m *SessionManager) acquireLicense(ctx context.Context, helper DrmHelper, sess *DrmSession) *drmerrors.DrmError {
	challenge := sess.CDM.Challenge()

	req, err := helper.GenerateLicenseRequest(ChallengeInfo{Challenge: challenge, KeyID: helper.PrimaryKeyID()})
	if err != nil {
		return drmerrors.New(drmerrors.DrmChallengeFailed, err)
	}
	m.applyConfigOverrides(helper, &req)

	if m.secMgr != nil && helper.GetDrmMetaData() != "" {
		licenseBuf, extSessionID, err := m.secMgr.RequestLicense(ctx, helper.GetDrmMetaData(), req)
		if err != nil {
			return drmerrors.New(drmerrors.LicenceRequestFailed, err)
		}
		sess.ExternalSessionID = extSessionID
		return m.processKey(helper, sess, licenseBuf)
	}

	if helper.RequiresAuth() {
		if m.currentToken() == "" {
			if err := m.refreshAccessToken(ctx); err != nil {
				return drmerrors.New(drmerrors.FailedToGetAccessToken, err)
			}
		}
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers["Authorization"] = "Bearer " + m.currentToken()
	}

	resp, derr := m.doLicenseHTTPWithRetry(ctx, helper, req)
	if derr != nil {
		return derr
	}

	transformed, err := helper.TransformLicenseResponse(*resp)
	if err != nil {
		return drmerrors.New(drmerrors.DrmKeyUpdateFailed, err)
	}
	return m.processKey(helper, sess, transformed)
}

// processKey hands the transformed license to the CDM and waits for it to
// report a key status. This façade has no native CDM to deliver that status
// on its own callback thread, so the manager simulates it: a delivered,
// non-empty license is reported usable, the same way a test double drives
// cdm.Session in adapter_test.go.
func (m *SessionManager) processKey(helper DrmHelper, sess *DrmSession, licenseBytes []byte) *drmerrors.DrmError {
	go func() {
		// Deliver only once ProcessKey has entered StateAwaitingKeyUpdate,
		// so the status cannot land first and be overwritten by it.
		if sess.CDM.WaitForState(cdm.StateAwaitingKeyUpdate, helper.KeyProcessTimeout()) {
			deliverSimulatedKeyStatus(sess.CDM, licenseBytes)
		}
	}()

	status, err := sess.CDM.ProcessKey(licenseBytes, helper.KeyProcessTimeout())
	if err != nil {
		return drmerrors.New(drmerrors.DrmKeyUpdateFailed, err)
	}
	if KeyStatus(status) == KeyHWError {
		m.handleHWError()
		return drmerrors.New(drmerrors.DrmKeyUpdateFailed, fmt.Errorf("cdm reported hardware error"))
	}
	if KeyStatus(status) == KeyOutputRestrictedHDCP22 {
		return drmerrors.New(drmerrors.HDCPComplianceError, nil)
	}
	return nil
}

// deliverSimulatedKeyStatus stands in for the platform CDM's async key
// processing callback: an empty license buffer reports as a hardware
// error, anything else reports usable.
func deliverSimulatedKeyStatus(c *cdm.Session, licenseBytes []byte) {
	if len(licenseBytes) == 0 {
		c.DeliverKeyUpdate(int(KeyHWError))
		return
	}
	c.DeliverKeyUpdate(int(KeyUsable))
}

// handleHWError is the opt-in "scary self-kill" safety net: gated by
// config, not mainline behavior.
func (m *SessionManager) handleHWError() {
	enabled, _, _ := config.GetChecked[bool](m.cfg, config.KeyHWErrorSelfKillEnabled)
	if !enabled {
		log.WithComponent("drm").Warn().Msg("drm.hw_error_self_kill_disabled")
		return
	}
	log.WithComponent("drm").Error().Msg("drm.hw_error_self_kill")
	panic("drm: unrecoverable hardware error reported by CDM")
}

func (m *SessionManager) applyConfigOverrides(helper DrmHelper, req *LicenseRequest) {
	if override, layer, err := config.GetChecked[string](m.cfg, config.KeyLicenseServerURL); err == nil && layer != config.Default && override != "" {
		req.URL = override
	}
	mds, _, _ := config.GetChecked[bool](m.cfg, config.KeyMDSModeEnabled)
	if mds && helper.GetDrmMetaData() != "" {
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers["Content-Type"] = "application/json"
		req.Headers["Accept"] = "application/json"
		envelope := map[string]string{
			"drmMetadata": helper.GetDrmMetaData(),
			"payload":     string(req.Payload),
		}
		if b, err := json.Marshal(envelope); err == nil {
			req.Payload = b
		}
	}
}

// doLicenseHTTPWithRetry implements the retry/backoff/token-refresh rule:
// at most KeyLicenseMaxAttempts attempts (2 unless configured otherwise),
// retry on 5xx or transport timeout, single token-refresh-and-retry on
// 412+401, which uses up one of those attempts.
func (m *SessionManager) doLicenseHTTPWithRetry(ctx context.Context, helper DrmHelper, req LicenseRequest) (*LicenseResponse, *drmerrors.DrmError) {
	maxAttempts, _, _ := config.GetChecked[int](m.cfg, config.KeyLicenseMaxAttempts)
	if maxAttempts < 1 {
		maxAttempts = 2
	}
	waitMS, _, _ := config.GetChecked[int64](m.cfg, config.KeyLicenseRetryWaitTimeMS)

	tokenRefreshed := false
	var lastErr *drmerrors.DrmError

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if m.licenseRequestAbort.Load() {
			return nil, drmerrors.New(drmerrors.DrmSelfAbort, nil)
		}

		start := time.Now()
		resp, err := m.doOnceViaBreaker(ctx, req)
		metrics.LicenseRequestDuration.WithLabelValues(helper.OcdmSystemID(), fmt.Sprint(attempt)).Observe(time.Since(start).Seconds())

		if err != nil {
			lastErr = drmerrors.New(drmerrors.LicenceRequestFailed, err)
			if attempt < maxAttempts && shouldRetryErr(err) {
				metrics.LicenseRetriesTotal.WithLabelValues(helper.OcdmSystemID()).Inc()
				time.Sleep(time.Duration(waitMS) * time.Millisecond)
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == 412 && resp.Header["X-Extended-Status"] == "401" && !tokenRefreshed {
			tokenRefreshed = true
			if err := m.refreshAccessToken(ctx); err != nil {
				return nil, drmerrors.New(drmerrors.FailedToGetAccessToken, err)
			}
			if req.Headers == nil {
				req.Headers = map[string]string{}
			}
			req.Headers["Authorization"] = "Bearer " + m.currentToken()
			metrics.TokenRefreshTotal.WithLabelValues("retried").Inc()
			continue
		}

		if resp.StatusCode >= 500 && resp.StatusCode <= 599 && attempt < maxAttempts {
			metrics.LicenseRetriesTotal.WithLabelValues(helper.OcdmSystemID()).Inc()
			time.Sleep(time.Duration(waitMS) * time.Millisecond)
			continue
		}

		if resp.StatusCode == 412 {
			return nil, drmerrors.New(drmerrors.AuthorisationFailure, fmt.Errorf("license server returned 412"))
		}
		if resp.StatusCode >= 400 {
			return nil, drmerrors.New(drmerrors.LicenceRequestFailed, fmt.Errorf("license server status %d", resp.StatusCode))
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = drmerrors.New(drmerrors.LicenceRequestFailed, nil)
	}
	return nil, lastErr
}

func shouldRetryErr(err error) bool {
	if err == nil {
		return false
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return true
	}
	return false
}

func (m *SessionManager) doOnceViaBreaker(ctx context.Context, req LicenseRequest) (*LicenseResponse, error) {
	var resp *LicenseResponse
	err := m.breaker.Execute(func() error {
		m.breaker.RecordAttempt()
		r, err := m.doHTTP(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// limiterForHost returns the per-host token bucket a license request to
// host must wait on, creating it on first use.
func (m *SessionManager) limiterForHost(host string) *rate.Limiter {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	l, ok := m.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(defaultLicenseRPS), defaultLicenseBurst)
		m.limiters[host] = l
	}
	return l
}

func (m *SessionManager) doHTTP(ctx context.Context, req LicenseRequest) (*LicenseResponse, error) {
	if m.curlAbort.Load() {
		return nil, fmt.Errorf("drm: transfer aborted by setCurlAbort")
	}

	if u, err := url.Parse(req.URL); err == nil && u.Host != "" {
		if err := m.limiterForHost(u.Host).Wait(ctx); err != nil {
			return nil, fmt.Errorf("drm: license rate limit wait cancelled: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := m.httpClient
	if m.curl != nil {
		if h, ok := m.curl.GetHandle("drm_license", req.URL, 0); ok {
			client = h.Client
			defer m.curl.SaveHandle("drm_license", req.URL, 0, h)
		}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	hdr := map[string]string{}
	for k := range httpResp.Header {
		hdr[k] = httpResp.Header.Get(k)
	}
	return &LicenseResponse{StatusCode: httpResp.StatusCode, Body: body, Header: hdr}, nil
}

// accessTokenCacheKey is the single entry the token cache ever holds; one
// SessionManager talks to one access-token service.
const accessTokenCacheKey = "access_token"

// accessTokenTTL is set far longer than any process lifetime: the cache
// gives the token a place to live, not a natural expiry. A token is only
// ever replaced in response to the license server rejecting it.
const accessTokenTTL = 100 * 365 * 24 * time.Hour

func (m *SessionManager) currentToken() string {
	v, ok := m.tokenCache.Get(accessTokenCacheKey)
	if !ok {
		return ""
	}
	tok, _ := v.(string)
	return tok
}

// refreshAccessToken fetches a fresh token and caches it for the process
// lifetime; there is no TTL-based expiry, so a token is only ever replaced
// in response to the license server rejecting it.
func (m *SessionManager) refreshAccessToken(ctx context.Context) error {
	tok, err := m.tokenFetch(ctx)
	if err != nil {
		return err
	}
	m.tokenCache.Set(accessTokenCacheKey, tok, accessTokenTTL)
	return nil
}

func (m *SessionManager) fetchAccessToken(ctx context.Context) (string, error) {
	url, _, _ := config.GetChecked[string](m.cfg, config.KeyAccessTokenServiceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (m *SessionManager) emitMetadataEvent(derr *drmerrors.DrmError) {
	if m.events == nil || derr == nil {
		return
	}
	m.events.Dispatch(context.Background(), eventmgr.Event{
		Type: eventmgr.EventDRMMetadata,
		Payload: map[string]any{
			"code":           derr.Code.String(),
			"isRetryEnabled": derr.Retryable,
		},
	}, eventmgr.ModeDefault)
	metrics.SessionFailuresTotal.WithLabelValues(derr.Code.String()).Inc()
}

// ClearSessionData tears down every session, releasing external security
// sessions first, and zeroes every slot.
func (m *SessionManager) ClearSessionData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sl := range m.slots {
		sl.mu.Lock()
		if sl.Session != nil {
			if m.secMgr != nil && sl.Session.ExternalSessionID != "" {
				m.secMgr.ReleaseSession(sl.Session.ExternalSessionID)
			}
			sl.Session.setState(StateClosed)
			sl.Session.CDM.Close()
		}
		sl.Session = nil
		sl.KeyIDs = nil
		sl.LastUse = time.Time{}
		sl.Failed = false
		sl.Primary = false
		sl.mu.Unlock()
	}
}

// ClearDrmSession destroys sessions whose slot is marked failed, or every
// session when forceAll is set.
func (m *SessionManager) ClearDrmSession(forceAll bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sl := range m.slots {
		sl.mu.Lock()
		if sl.Session != nil && (forceAll || sl.Failed) {
			sl.Session.setState(StateClosed)
			sl.Session.CDM.Close()
			sl.Session = nil
			sl.Failed = false
		}
		sl.mu.Unlock()
	}
}

// ClearFailedKeyIds clears the failed and primary flags on every slot.
func (m *SessionManager) ClearFailedKeyIds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sl := range m.slots {
		sl.mu.Lock()
		sl.Failed = false
		sl.Primary = false
		sl.mu.Unlock()
	}
}
