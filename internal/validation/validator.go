package validation

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// WalletAddressPattern is the regex pattern for hex wallet addresses
var WalletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// tokenPattern constrains resource IDs and scopes to lowercase snake tokens
// (e.g. "lab_results", "read"). Scope matching is exact-string downstream;
// validation here only rejects garbage at the boundary.
var tokenPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidateWalletAddress validates a hex wallet address
func ValidateWalletAddress(address string) error {
	if address == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}

	if !WalletAddressPattern.MatchString(address) {
		return fmt.Errorf("invalid wallet address format: must be 0x followed by 40 hex characters")
	}

	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid wallet address")
	}

	return nil
}

// ValidateResourceID validates a resource identifier
func ValidateResourceID(resourceID string) error {
	if resourceID == "" {
		return fmt.Errorf("resource ID cannot be empty")
	}
	if !tokenPattern.MatchString(resourceID) {
		return fmt.Errorf("invalid resource ID: %q", resourceID)
	}
	return nil
}

// ValidateScope validates a scope string
func ValidateScope(scope string) error {
	if scope == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	if !tokenPattern.MatchString(scope) {
		return fmt.Errorf("invalid scope: %q", scope)
	}
	return nil
}
