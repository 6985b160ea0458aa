// Package crx decodes the signed binary container format that wraps
// extension archives.
//
// A container is the fixed 16-byte header {magic "Cr24", version,
// public key length, signature length} followed by the key and signature
// blobs and then the zip payload. Decoding is pure computation over a byte
// slice; the decoder never touches the filesystem.
//
// The one deliberate piece of leniency is the bounded recovery scan: when
// the declared header arithmetic is inconsistent with the actual file size
// (the dominant real-world corruption, e.g. a partial download), the
// decoder searches a small window after the fixed header for the zip
// local-file-header magic instead of failing outright.
//
// The same decoder backs both the installer pipeline and the crxdump
// diagnostic tool, so their view of a container can never drift apart.
package crx
