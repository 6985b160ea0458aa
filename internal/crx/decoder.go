package crx

import (
	"bytes"
	"encoding/binary"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

// Magic is the fixed 4-byte signature of the container format.
var Magic = []byte("Cr24")

const (
	// HeaderFixedSize is the size of the fixed header fields:
	// magic + version + publicKeyLength + signatureLength.
	HeaderFixedSize = 16

	// ScanLimit bounds the recovery scan window. Recovery must stay O(1)
	// relative to payload size, so it never searches the whole file.
	ScanLimit = 1000
)

// Known container format versions. Unknown versions decode best-effort
// under the assumption that the header shape is unchanged.
var knownVersions = map[uint32]bool{2: true, 3: true}

// Archive-format magics accepted at the start of a payload region.
var payloadMagics = [][]byte{
	{'P', 'K', 0x03, 0x04}, // local file header
	{'P', 'K', 0x05, 0x06}, // end of central directory
	{'P', 'K', 0x07, 0x08}, // spanned archive marker
}

// zipLocalHeader is the magic the recovery scan searches for.
var zipLocalHeader = payloadMagics[0]

// Header holds the decoded fixed header fields.
type Header struct {
	Version         uint32
	PublicKeyLength uint32
	SignatureLength uint32
}

// Size returns the declared total header size including both blobs.
func (h Header) Size() uint64 {
	return HeaderFixedSize + uint64(h.PublicKeyLength) + uint64(h.SignatureLength)
}

// Payload describes the archive byte range inside a decoded container.
type Payload struct {
	Header Header

	// Start and Length delimit the archive region within the input.
	Start  int
	Length int

	// Recovered is true when the offset came from the recovery scan
	// rather than the declared header arithmetic.
	Recovered bool

	// Warnings carries non-fatal findings such as an unknown version.
	Warnings []string

	// PublicKey and Signature are sub-slices of the input for a
	// well-formed header. Carried for diagnostics, never verified here.
	PublicKey []byte
	Signature []byte
}

// IsPayloadMagic reports whether b starts with a recognized archive magic.
func IsPayloadMagic(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	for _, m := range payloadMagics {
		if bytes.Equal(b[:4], m) {
			return true
		}
	}
	return false
}

// Decode decodes a signed container and locates its archive payload.
//
// Failure kinds: Truncated, MagicMismatch, ArchiveNotFound, InvalidPayload.
// An unknown version is a warning on the returned Payload, not an error.
func Decode(data []byte) (*Payload, error) {
	if len(data) < len(Magic) {
		return nil, errs.Of(errs.KindTruncated)
	}
	if !bytes.Equal(data[:4], Magic) {
		// Not this container format at all; recovery would be meaningless.
		return nil, errs.Of(errs.KindMagicMismatch)
	}
	if len(data) < HeaderFixedSize {
		return nil, errs.Of(errs.KindTruncated)
	}

	hdr := Header{
		Version:         binary.LittleEndian.Uint32(data[4:8]),
		PublicKeyLength: binary.LittleEndian.Uint32(data[8:12]),
		SignatureLength: binary.LittleEndian.Uint32(data[12:16]),
	}

	var warnings []string
	if !knownVersions[hdr.Version] {
		warnings = append(warnings, errs.New(errs.KindUnsupportedVersion,
			"container declares version %d, expected 2 or 3", hdr.Version).Error())
	}

	total := uint64(len(data))
	headerSize := hdr.Size()

	// The declared sizes are inconsistent with the actual file when the
	// region after the header cannot hold more than the 4-byte archive
	// magic. Scan a bounded window for the zip local-file-header magic
	// instead of failing; first match wins.
	if headerSize+uint64(len(zipLocalHeader)) >= total {
		offset, ok := recoverPayloadOffset(data)
		if !ok {
			return nil, errs.Of(errs.KindArchiveNotFound)
		}
		return &Payload{
			Header:    hdr,
			Start:     offset,
			Length:    len(data) - offset,
			Recovered: true,
			Warnings:  warnings,
		}, nil
	}

	start := int(headerSize)
	if !IsPayloadMagic(data[start:]) {
		// The header arithmetic looked fine, so recovery never ran; a bad
		// magic here is terminal.
		return nil, errs.Of(errs.KindInvalidPayload)
	}

	keyEnd := HeaderFixedSize + int(hdr.PublicKeyLength)
	return &Payload{
		Header:    hdr,
		Start:     start,
		Length:    len(data) - start,
		Warnings:  warnings,
		PublicKey: data[HeaderFixedSize:keyEnd],
		Signature: data[keyEnd:start],
	}, nil
}

// recoverPayloadOffset scans [HeaderFixedSize, min(len-4, HeaderFixedSize+ScanLimit))
// for the first zip local-file-header magic.
func recoverPayloadOffset(data []byte) (int, bool) {
	end := len(data) - len(zipLocalHeader)
	if limit := HeaderFixedSize + ScanLimit; end > limit {
		end = limit
	}
	for off := HeaderFixedSize; off < end; off++ {
		if bytes.Equal(data[off:off+4], zipLocalHeader) {
			return off, true
		}
	}
	return 0, false
}
