package crx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

// container builds a header followed by extra bytes.
func container(version, keyLen, sigLen uint32, rest ...byte) []byte {
	buf := make([]byte, 16, 16+len(rest))
	copy(buf, Magic)
	binary.LittleEndian.PutUint32(buf[4:], version)
	binary.LittleEndian.PutUint32(buf[8:], keyLen)
	binary.LittleEndian.PutUint32(buf[12:], sigLen)
	return append(buf, rest...)
}

func TestDecodeTruncated(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		_, err := Decode(make([]byte, n))
		assert.Equal(t, errs.KindTruncated, errs.KindOf(err), "length %d", n)
	}

	// Correct magic but header cut short.
	_, err := Decode([]byte("Cr24\x03\x00"))
	assert.Equal(t, errs.KindTruncated, errs.KindOf(err))
}

func TestDecodeMagicMismatch(t *testing.T) {
	buf := container(3, 0, 0, 'P', 'K', 0x03, 0x04)
	copy(buf, "Cr99")

	_, err := Decode(buf)
	assert.Equal(t, errs.KindMagicMismatch, errs.KindOf(err))
}

func TestDecodeWellFormed(t *testing.T) {
	key := []byte{0xAA, 0xBB}
	sig := []byte{0xCC, 0xDD, 0xEE}
	rest := append(append(append([]byte{}, key...), sig...),
		'P', 'K', 0x03, 0x04, 1, 2, 3, 4, 5, 6)

	p, err := Decode(container(3, 2, 3, rest...))
	require.NoError(t, err)

	assert.False(t, p.Recovered)
	assert.Equal(t, 21, p.Start)
	assert.Equal(t, 10, p.Length)
	assert.Equal(t, key, p.PublicKey)
	assert.Equal(t, sig, p.Signature)
	assert.Empty(t, p.Warnings)
}

func TestDecodeUnknownVersionWarns(t *testing.T) {
	p, err := Decode(container(7, 0, 0, 'P', 'K', 0x03, 0x04, 0, 0, 0, 0))
	require.NoError(t, err)

	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "version 7")
	assert.False(t, p.Recovered)
}

func TestDecodeRecoveryFindsPayload(t *testing.T) {
	// Declared sizes reach past the end of the file, but a real zip magic
	// sits a little after the fixed header.
	padding := make([]byte, 20)
	rest := append(padding, 'P', 'K', 0x03, 0x04, 9, 9, 9, 9, 9, 9)

	p, err := Decode(container(3, 5000, 5000, rest...))
	require.NoError(t, err)

	assert.True(t, p.Recovered)
	assert.Equal(t, 36, p.Start)
	assert.Equal(t, 10, p.Length)
	assert.Nil(t, p.PublicKey)
}

func TestDecodeRecoveryExhausted(t *testing.T) {
	rest := make([]byte, 200) // no zip magic anywhere
	_, err := Decode(container(3, 5000, 5000, rest...))
	assert.Equal(t, errs.KindArchiveNotFound, errs.KindOf(err))
}

func TestDecodeRecoveryWindowBounded(t *testing.T) {
	// Magic beyond the scan limit must not be found.
	rest := make([]byte, ScanLimit+64)
	copy(rest[ScanLimit+8:], []byte{'P', 'K', 0x03, 0x04})

	_, err := Decode(container(3, 1<<30, 1<<30, rest...))
	assert.Equal(t, errs.KindArchiveNotFound, errs.KindOf(err))
}

// A 20-byte container with zero-length key and signature leaves no room
// for a payload beyond the magic itself: the recovery window [16,16) is
// empty, so decoding fails with ArchiveNotFound.
func TestDecodeEmptyRecoveryWindow(t *testing.T) {
	_, err := Decode(container(3, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF))
	assert.Equal(t, errs.KindArchiveNotFound, errs.KindOf(err))
}

// When the header arithmetic is internally consistent, a wrong payload
// magic is terminal; recovery must not run even if a valid magic exists
// further into the file.
func TestDecodeNoRecoveryOnConsistentHeader(t *testing.T) {
	rest := make([]byte, 34)
	copy(rest[24:], []byte{'P', 'K', 0x03, 0x04}) // magic at offset 40, total 50

	_, err := Decode(container(3, 4, 4, rest...))
	assert.Equal(t, errs.KindInvalidPayload, errs.KindOf(err))
}

func TestIsPayloadMagic(t *testing.T) {
	assert.True(t, IsPayloadMagic([]byte{'P', 'K', 0x03, 0x04, 0}))
	assert.True(t, IsPayloadMagic([]byte{'P', 'K', 0x05, 0x06}))
	assert.True(t, IsPayloadMagic([]byte{'P', 'K', 0x07, 0x08}))
	assert.False(t, IsPayloadMagic([]byte{'P', 'K', 0x01, 0x02}))
	assert.False(t, IsPayloadMagic([]byte{'P', 'K'}))
}
