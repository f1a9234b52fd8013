package types

import (
	"encoding/json"
	"fmt"
)

// ProfileVersion is the current profile schema version.
const ProfileVersion = 1

// Bounds on the profile extension map. The schema is a small tagged set of
// known fields plus a bounded extension map, so encrypt/decrypt round trips
// operate on a well-typed structure.
const (
	MaxProfileExtensions   = 32
	MaxExtensionKeyLength  = 64
	MaxExtensionValueBytes = 4096
)

// Profile is the plaintext health profile encrypted under the owner's
// wallet-derived key. The backend only ever sees its encrypted envelope.
type Profile struct {
	Version          int               `json:"version"`
	FullName         string            `json:"full_name,omitempty"`
	DateOfBirth      string            `json:"date_of_birth,omitempty"`
	BloodType        string            `json:"blood_type,omitempty"`
	Allergies        []string          `json:"allergies,omitempty"`
	Medications      []string          `json:"medications,omitempty"`
	EmergencyContact string            `json:"emergency_contact,omitempty"`
	Extensions       map[string]string `json:"extensions,omitempty"`
}

// Validate checks schema version and extension bounds.
func (p *Profile) Validate() error {
	if p.Version != ProfileVersion {
		return fmt.Errorf("unsupported profile version: %d", p.Version)
	}
	if len(p.Extensions) > MaxProfileExtensions {
		return fmt.Errorf("too many profile extensions: %d (max %d)", len(p.Extensions), MaxProfileExtensions)
	}
	for k, v := range p.Extensions {
		if k == "" {
			return fmt.Errorf("profile extension key cannot be empty")
		}
		if len(k) > MaxExtensionKeyLength {
			return fmt.Errorf("profile extension key too long: %q", k)
		}
		if len(v) > MaxExtensionValueBytes {
			return fmt.Errorf("profile extension value too large for key %q", k)
		}
	}
	return nil
}

// EncodeProfile serializes a profile for encryption, stamping the current
// schema version.
func EncodeProfile(p *Profile) ([]byte, error) {
	if p.Version == 0 {
		p.Version = ProfileVersion
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}

// DecodeProfile parses and validates a decrypted profile payload.
func DecodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}
