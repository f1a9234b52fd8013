package api

import (
	"encoding/base64"
	"net/http"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// storeRecordRequest carries an envelope in transit form (base64); the
// store holds raw bytes.
type storeRecordRequest struct {
	Owner      string `json:"owner"`
	ResourceID string `json:"resource_id,omitempty"`
	Envelope   string `json:"envelope"`
}

// handleRecords routes PUT (store) and GET (fetch) for /v1/records.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		s.handleStoreRecord(w, r)
	case http.MethodGet:
		s.handleFetchRecord(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleStoreRecord(w http.ResponseWriter, r *http.Request) {
	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	var req storeRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Owner == "" {
		req.Owner = caller
	}

	envelope, err := base64.StdEncoding.DecodeString(req.Envelope)
	if err != nil {
		writeError(w, r, apperrors.MalformedEnvelope("envelope is not valid base64"))
		return
	}

	if err := s.recordService.StoreRecord(r.Context(), caller, req.Owner, req.ResourceID, envelope); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "stored", "bytes": len(envelope)})
}

// handleFetchRecord serves the envelope for owner/resource_id. The caller
// is the requester; non-owners must hold an approved grant for the scope.
func (s *Server) handleFetchRecord(w http.ResponseWriter, r *http.Request) {
	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	q := r.URL.Query()
	scope := q.Get("scope")
	if scope == "" {
		scope = "read"
	}

	envelope, err := s.recordService.FetchRecord(r.Context(), caller, q.Get("owner"), q.Get("resource_id"), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"envelope": base64.StdEncoding.EncodeToString(envelope),
	})
}
