package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeProfileRoundTrip(t *testing.T) {
	profile := &Profile{
		FullName:         "Ada Lovelace",
		DateOfBirth:      "1815-12-10",
		BloodType:        "O-",
		Allergies:        []string{"penicillin", "latex"},
		Medications:      []string{"metformin"},
		EmergencyContact: "+44 20 0000 0000",
		Extensions:       map[string]string{"insurer": "NHS"},
	}

	data, err := EncodeProfile(profile)
	require.NoError(t, err)
	assert.Equal(t, ProfileVersion, profile.Version, "encode stamps the schema version")

	decoded, err := DecodeProfile(data)
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}

func TestDecodeProfileRejectsGarbage(t *testing.T) {
	_, err := DecodeProfile([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodeProfileRejectsWrongVersion(t *testing.T) {
	_, err := DecodeProfile([]byte(`{"version":2,"full_name":"Ada"}`))
	assert.Error(t, err)

	_, err = DecodeProfile([]byte(`{"full_name":"Ada"}`))
	assert.Error(t, err, "missing version is not accepted on decode")
}

func TestProfileValidateExtensionBounds(t *testing.T) {
	t.Run("too many extensions", func(t *testing.T) {
		p := &Profile{Version: ProfileVersion, Extensions: map[string]string{}}
		for i := 0; i <= MaxProfileExtensions; i++ {
			p.Extensions["key_"+strings.Repeat("x", i+1)] = "v"
		}
		assert.Error(t, p.Validate())
	})

	t.Run("empty key", func(t *testing.T) {
		p := &Profile{Version: ProfileVersion, Extensions: map[string]string{"": "v"}}
		assert.Error(t, p.Validate())
	})

	t.Run("key too long", func(t *testing.T) {
		p := &Profile{Version: ProfileVersion, Extensions: map[string]string{
			strings.Repeat("k", MaxExtensionKeyLength+1): "v",
		}}
		assert.Error(t, p.Validate())
	})

	t.Run("value too large", func(t *testing.T) {
		p := &Profile{Version: ProfileVersion, Extensions: map[string]string{
			"note": strings.Repeat("v", MaxExtensionValueBytes+1),
		}}
		assert.Error(t, p.Validate())
	})

	t.Run("at the bounds", func(t *testing.T) {
		p := &Profile{Version: ProfileVersion, Extensions: map[string]string{
			strings.Repeat("k", MaxExtensionKeyLength): strings.Repeat("v", MaxExtensionValueBytes),
		}}
		assert.NoError(t, p.Validate())
	})
}
