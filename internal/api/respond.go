package api

import (
	"encoding/json"
	"net/http"

	"github.com/carevault/carevault/internal/logger"
	apperrors "github.com/carevault/carevault/pkg/errors"
)

// callerWalletHeader carries the authenticated caller's wallet address, set
// by the upstream gateway after signature verification. Gateway mechanics
// are outside this service.
const callerWalletHeader = "X-Wallet-Address"

func callerWallet(r *http.Request) string {
	return r.Header.Get(callerWalletHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperrors.IsAppError(err); ok {
		writeJSON(w, appErr.StatusCode, appErr)
		return
	}

	logger.Error(r.Context(), "internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, apperrors.ErrInternalError)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.BadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed,
		apperrors.New("method_not_allowed", "Method not allowed", http.StatusMethodNotAllowed))
}
