// Package frame decodes the two wire forms competition software pushes over
// the ingress socket: JSON text envelopes for event frames and
// length-prefixed binary frames for resource bundles. The codec is pure, size
// limits and replies belong to the socket layer.
package frame

import (
	"bytes"
	"encoding/binary"

	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformed rejects frames that do not parse as either wire form.
var ErrMalformed = errors.New("malformed frame")

// Event frame types carried by text envelopes.
const (
	TypeUpdate   = "update"
	TypeTimer    = "timer"
	TypeDecision = "decision"
	TypeDatabase = "database"
)

// Binary frame tags. TagLegacyFlags is the pre-2.0 alias some producers still
// send for flag bundles.
const (
	TagFlagsZip        = "flags_zip"
	TagLogosZip        = "logos_zip"
	TagPicturesZip     = "pictures_zip"
	TagStyles          = "styles"
	TagTranslationsZip = "translations_zip"
	TagLegacyFlags     = "flags"
)

// zipMagic is the local-file-header signature every ZIP starts with.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// maxTagLength bounds the declared tag length. Tags are short ASCII names; a
// frame declaring more tag than this is corrupt or legacy framing.
const maxTagLength = 32

var decodedFramesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingress_frames_decoded_total",
	Help: "Count of successfully decoded binary frames, by tag.",
}, []string{"tag"})

// Envelope is the top level of a text frame.
type Envelope struct {
	Type    string              `json:"type"`
	Version string              `json:"version,omitempty"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

// DecodeText parses a text frame envelope.
func DecodeText(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	if env.Type == "" {
		return nil, errors.Wrap(ErrMalformed, "envelope missing type")
	}
	return &env, nil
}

// IsEventType reports whether a text frame type is one of the event frames
// that carry competition state.
func IsEventType(frameType string) bool {
	switch frameType {
	case TypeUpdate, TypeTimer, TypeDecision, TypeDatabase:
		return true
	}
	return false
}

// DecodeBinary splits a binary frame into its type tag and payload. Legacy
// producers sent bare ZIP buffers with no length prefix, and some wrote a
// length word that does not describe a tag at all; a frame opening with the
// ZIP magic, or carrying it right after an implausible length word, is
// decoded as a flag bundle.
func DecodeBinary(data []byte) (string, []byte, error) {
	if len(data) < 5 {
		return "", nil, errors.Wrapf(ErrMalformed, "frame too short: %d bytes", len(data))
	}
	if bytes.Equal(data[:4], zipMagic) {
		decodedFramesCount.WithLabelValues(TagFlagsZip).Inc()
		return TagFlagsZip, data, nil
	}
	typeLength := int32(binary.BigEndian.Uint32(data[:4]))
	if typeLength <= 0 || int(typeLength) > len(data)-4 || typeLength > maxTagLength {
		if len(data) >= 8 && bytes.Equal(data[4:8], zipMagic) {
			decodedFramesCount.WithLabelValues(TagFlagsZip).Inc()
			return TagFlagsZip, data[4:], nil
		}
		return "", nil, errors.Wrapf(ErrMalformed, "implausible type length %d in %d byte frame", typeLength, len(data))
	}
	tag := string(data[4 : 4+typeLength])
	decodedFramesCount.WithLabelValues(tag).Inc()
	return tag, data[4+typeLength:], nil
}

// EncodeBinary builds the length-prefixed binary form for a tag and payload.
func EncodeBinary(tag string, payload []byte) []byte {
	out := make([]byte, 4+len(tag)+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(tag)))
	copy(out[4:], tag)
	copy(out[4+len(tag):], payload)
	return out
}

// Normalize maps legacy tag aliases onto their canonical form.
func Normalize(tag string) string {
	if tag == TagLegacyFlags {
		return TagFlagsZip
	}
	return tag
}

// ArchiveCategory maps a binary tag to the local directory category its
// entries are written under. Translation bundles are parsed rather than
// extracted, so they carry no category.
func ArchiveCategory(tag string) (string, bool) {
	switch Normalize(tag) {
	case TagFlagsZip:
		return archive.CategoryFlags, true
	case TagLogosZip:
		return archive.CategoryLogos, true
	case TagPicturesZip:
		return archive.CategoryPictures, true
	case TagStyles:
		return archive.CategoryStyles, true
	}
	return "", false
}

// IsKnownBinary reports whether the tag is one the relay understands.
func IsKnownBinary(tag string) bool {
	if _, ok := ArchiveCategory(tag); ok {
		return true
	}
	return Normalize(tag) == TagTranslationsZip
}
