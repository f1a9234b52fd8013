package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevault/carevault/internal/api"
	"github.com/carevault/carevault/internal/app"
	"github.com/carevault/carevault/internal/config"
	"github.com/carevault/carevault/internal/keywrap"
	"github.com/carevault/carevault/internal/permission"
	"github.com/carevault/carevault/pkg/types"
	"github.com/carevault/carevault/tests/mocks"
)

const (
	patientWallet = "0x1111111111111111111111111111111111111111"
	doctorWallet  = "0x2222222222222222222222222222222222222222"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Port:             8080,
		RateLimitEnabled: false,
	}

	machine := permission.NewMachine(mocks.NewMemPermissionStore(), mocks.NewFakeLedger())
	envelopes := mocks.NewMemEnvelopeStore()
	consents := app.NewConsentService(machine)
	records := app.NewRecordService(envelopes, consents)

	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i + 7)
	}
	wrapper, err := keywrap.NewLocalWrapper(hex.EncodeToString(masterKey))
	require.NoError(t, err)
	profiles := app.NewProfileService(mocks.NewMemWrappedKeys(), wrapper, envelopes, 5*time.Second)

	return api.NewServer(cfg, consents, records, profiles).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set("X-Wallet-Address", caller)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestConsentLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	// Doctor requests access.
	rr := doJSON(t, handler, http.MethodPost, "/v1/consents", doctorWallet, map[string]any{
		"owner":       patientWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec types.PermissionRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, types.StatusRequested, rec.Status)

	// Patient approves.
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/approve", patientWallet, map[string]any{
		"requester":   doctorWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, types.StatusApproved, rec.Status)
	assert.NotEmpty(t, rec.ConsentTxID)

	// Access check allows.
	rr = doJSON(t, handler, http.MethodGet,
		"/v1/consents/check?owner="+patientWallet+"&requester="+doctorWallet+"&resource_id=lab_results&scope=read",
		doctorWallet, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var decision types.AccessDecision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.True(t, decision.Allow)

	// Patient revokes.
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/revoke", patientWallet, map[string]any{
		"requester":   doctorWallet,
		"resource_id": "lab_results",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var revoked struct {
		Status  types.GrantStatus `json:"status"`
		Revoked int               `json:"revoked"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &revoked))
	assert.Equal(t, types.StatusRevoked, revoked.Status)
	assert.Equal(t, 1, revoked.Revoked)

	// Access check now denies with REVOKED.
	rr = doJSON(t, handler, http.MethodGet,
		"/v1/consents/check?owner="+patientWallet+"&requester="+doctorWallet+"&resource_id=lab_results&scope=read",
		doctorWallet, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.False(t, decision.Allow)
	assert.Equal(t, types.ReasonRevoked, decision.Reason)
}

func TestConsentRequiresCallerHeader(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPost, "/v1/consents", "", map[string]any{
		"owner": patientWallet,
		"scope": "read",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestApproveByNonOwnerFails(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPost, "/v1/consents", doctorWallet, map[string]any{
		"owner":       patientWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	// The doctor tries to approve the patient's grant.
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/approve", doctorWallet, map[string]any{
		"owner":       patientWallet,
		"requester":   doctorWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestApproveTwiceConflictsOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPost, "/v1/consents", doctorWallet, map[string]any{
		"owner":       patientWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	approve := map[string]any{
		"requester":   doctorWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	}
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/approve", patientWallet, approve)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/approve", patientWallet, approve)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRecordStoreAndFetchOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	envelope := make([]byte, 44)
	for i := range envelope {
		envelope[i] = byte(i)
	}

	rr := doJSON(t, handler, http.MethodPut, "/v1/records", patientWallet, map[string]any{
		"resource_id": "lab_results",
		"envelope":    base64.StdEncoding.EncodeToString(envelope),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The doctor has no grant yet.
	rr = doJSON(t, handler, http.MethodGet,
		"/v1/records?owner="+patientWallet+"&resource_id=lab_results", doctorWallet, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Request plus approval opens the fetch.
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents", doctorWallet, map[string]any{
		"owner":       patientWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, handler, http.MethodPost, "/v1/consents/approve", patientWallet, map[string]any{
		"requester":   doctorWallet,
		"resource_id": "lab_results",
		"scope":       "read",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, handler, http.MethodGet,
		"/v1/records?owner="+patientWallet+"&resource_id=lab_results", doctorWallet, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var fetched struct {
		Envelope string `json:"envelope"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	got, err := base64.StdEncoding.DecodeString(fetched.Envelope)
	require.NoError(t, err)
	assert.Equal(t, envelope, got)
}

func TestRecordRejectsBadBase64(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPut, "/v1/records", patientWallet, map[string]any{
		"envelope": "not base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "malformed_envelope")
}

func TestProfileLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPost, "/v1/custodial-wallets", patientWallet, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var provisioned struct {
		WalletAddress string `json:"wallet_address"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &provisioned))
	require.Regexp(t, `^0x[0-9a-fA-F]{40}$`, provisioned.WalletAddress)

	rr = doJSON(t, handler, http.MethodPut, "/v1/profiles", provisioned.WalletAddress, map[string]any{
		"blood_type": "O-",
		"allergies":  []string{"penicillin"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, handler, http.MethodGet, "/v1/profiles", provisioned.WalletAddress, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile types.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "O-", profile.BloodType)
	assert.Equal(t, []string{"penicillin"}, profile.Allergies)
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodDelete, "/v1/consents", doctorWallet, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, http.MethodPost, "/v1/consents", doctorWallet, map[string]any{
		"owner":      patientWallet,
		"scope":      "read",
		"unexpected": true,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
