package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	env, err := DecodeText([]byte(`{"type":"update","version":"2.0.0","payload":{"fopName":"A"}}`))
	require.NoError(t, err)
	assert.Equal(t, "update", env.Type)
	assert.Equal(t, "2.0.0", env.Version)
	assert.JSONEq(t, `{"fopName":"A"}`, string(env.Payload))

	_, err = DecodeText([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeText([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIsEventType(t *testing.T) {
	for _, frameType := range []string{TypeUpdate, TypeTimer, TypeDecision, TypeDatabase} {
		assert.True(t, IsEventType(frameType), frameType)
	}
	assert.False(t, IsEventType("reply"))
	assert.False(t, IsEventType(""))
}

func TestBinaryRoundTrip(t *testing.T) {
	payload := []byte{0x50, 0x4B, 0x03, 0x04, 0xDE, 0xAD}
	for _, tag := range []string{TagFlagsZip, TagLogosZip, TagPicturesZip, TagStyles, TagTranslationsZip} {
		gotTag, gotPayload, err := DecodeBinary(EncodeBinary(tag, payload))
		require.NoError(t, err, tag)
		assert.Equal(t, tag, gotTag)
		assert.Equal(t, payload, gotPayload)
	}
}

func TestDecodeBinary_LegacyZipFallback(t *testing.T) {
	// A bare ZIP with no length prefix: the magic reads as an implausible
	// type length.
	raw := []byte{0x50, 0x4B, 0x03, 0x04, 0x0A, 0x00, 0x00, 0x00}
	tag, payload, err := DecodeBinary(raw)
	require.NoError(t, err)
	assert.Equal(t, TagFlagsZip, tag)
	assert.Equal(t, raw, payload)
}

func TestDecodeBinary_PrefixedZipFallback(t *testing.T) {
	// A length word that cannot be a tag, followed by the ZIP magic: the
	// archive starts at byte four.
	raw := append([]byte{0x00, 0x00, 0x00, 0xFF}, 0x50, 0x4B, 0x03, 0x04, 0x0A, 0x00)
	tag, payload, err := DecodeBinary(raw)
	require.NoError(t, err)
	assert.Equal(t, TagFlagsZip, tag)
	assert.Equal(t, raw[4:], payload)

	// Zero length word with the magic behind it recovers the same way.
	raw = append([]byte{0x00, 0x00, 0x00, 0x00}, 0x50, 0x4B, 0x03, 0x04)
	tag, payload, err = DecodeBinary(raw)
	require.NoError(t, err)
	assert.Equal(t, TagFlagsZip, tag)
	assert.Equal(t, raw[4:], payload)
}

func TestDecodeBinary_Boundaries(t *testing.T) {
	// Five bytes with typeLength 1 and an empty payload must decode without
	// truncating the tag.
	tag, payload, err := DecodeBinary([]byte{0x00, 0x00, 0x00, 0x01, 's'})
	require.NoError(t, err)
	assert.Equal(t, "s", tag)
	assert.Empty(t, payload)

	// Only the length field present.
	_, _, err = DecodeBinary([]byte{0x00, 0x00, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = DecodeBinary(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeBinary_ImplausibleLengths(t *testing.T) {
	// Zero length, not a ZIP.
	_, _, err := DecodeBinary([]byte{0x00, 0x00, 0x00, 0x00, 'x', 'y'})
	assert.ErrorIs(t, err, ErrMalformed)

	// Negative when read as int32.
	_, _, err = DecodeBinary([]byte{0xFF, 0xFF, 0xFF, 0xFF, 'x', 'y'})
	assert.ErrorIs(t, err, ErrMalformed)

	// Larger than the remaining frame without a ZIP prefix.
	_, _, err = DecodeBinary([]byte{0x00, 0x00, 0x00, 0x10, 'x', 'y'})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, TagFlagsZip, Normalize(TagLegacyFlags))
	assert.Equal(t, TagStyles, Normalize(TagStyles))
}

func TestArchiveCategory(t *testing.T) {
	category, ok := ArchiveCategory(TagLegacyFlags)
	require.True(t, ok)
	assert.Equal(t, "flags", category)

	category, ok = ArchiveCategory(TagPicturesZip)
	require.True(t, ok)
	assert.Equal(t, "pictures", category)

	_, ok = ArchiveCategory(TagTranslationsZip)
	assert.False(t, ok)

	_, ok = ArchiveCategory("bogus")
	assert.False(t, ok)
}

func TestIsKnownBinary(t *testing.T) {
	for _, tag := range []string{TagFlagsZip, TagLegacyFlags, TagLogosZip, TagPicturesZip, TagStyles, TagTranslationsZip} {
		assert.True(t, IsKnownBinary(tag), tag)
	}
	assert.False(t, IsKnownBinary("s"))
}
