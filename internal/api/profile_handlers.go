package api

import (
	"net/http"

	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// handleProvisionWallet handles POST /v1/custodial-wallets: creates a
// managed wallet whose signing key the service custodies wrapped.
func (s *Server) handleProvisionWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	address, err := s.profileService.ProvisionWallet(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"wallet_address": address})
}

// handleProfiles routes PUT (save) and GET (load) for /v1/profiles in
// managed-custody mode. The caller must be the custodial wallet itself.
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	caller := callerWallet(r)
	if caller == "" {
		writeError(w, r, apperrors.Unauthorized("missing "+callerWalletHeader+" header"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var profile types.Profile
		if err := decodeJSON(r, &profile); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.profileService.SaveProfile(r.Context(), caller, &profile); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	case http.MethodGet:
		profile, err := s.profileService.LoadProfile(r.Context(), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)

	default:
		methodNotAllowed(w)
	}
}
