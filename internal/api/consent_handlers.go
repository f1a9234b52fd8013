package api

import (
	"net/http"
	"time"

	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// consentRequest is the body shared by request/approve/deny calls. An empty
// resource_id means "profile".
type consentRequest struct {
	Owner      string     `json:"owner"`
	Requester  string     `json:"requester"`
	ResourceID string     `json:"resource_id,omitempty"`
	Scope      string     `json:"scope"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type revokeRequest struct {
	Requester  string `json:"requester"`
	ResourceID string `json:"resource_id,omitempty"`
}

// handleRequestAccess handles POST /v1/consents. The caller is the
// requester; the owner is named in the body.
func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.consentService.RequestAccess(r.Context(), caller, req.Owner, req.ResourceID, req.Scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleApproveAccess handles POST /v1/consents/approve. Only the record's
// owner may approve; the caller identity is checked against it.
func (s *Server) handleApproveAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Owner == "" {
		req.Owner = caller
	}

	rec, err := s.consentService.ApproveAccess(r.Context(), caller, req.Owner, req.Requester, req.ResourceID, req.Scope, req.ExpiresAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDenyAccess handles POST /v1/consents/deny.
func (s *Server) handleDenyAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	var req consentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Owner == "" {
		req.Owner = caller
	}

	rec, err := s.consentService.DenyAccess(r.Context(), caller, req.Owner, req.Requester, req.ResourceID, req.Scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRevokeAccess handles POST /v1/consents/revoke. The caller revokes
// their own grants; omitting resource_id revokes every approved grant for
// the requester.
func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	var req revokeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	count, err := s.consentService.RevokeAccess(r.Context(), caller, req.Requester, req.ResourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  types.StatusRevoked,
		"revoked": count,
	})
}

// handleCheckAccess handles GET /v1/consents/check. Denials are results,
// not errors; the response always carries allow plus an optional reason.
func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	decision, err := s.consentService.CheckAccess(r.Context(),
		q.Get("owner"), q.Get("requester"), q.Get("resource_id"), q.Get("scope"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
