// Package errs defines the typed error taxonomy for package ingestion.
//
// Every decoding and validation failure is reported as a value carrying an
// explicit Kind, so callers branch on the kind instead of matching message
// substrings. Each kind maps to exactly one user-facing message; anything
// without a mapping falls back to the raw error text.
package errs

import "fmt"

// Kind identifies a validation or decoding failure class.
type Kind string

const (
	// Container decoding
	KindTruncated             Kind = "truncated"
	KindMagicMismatch         Kind = "magic_mismatch"
	KindUnsupportedVersion    Kind = "unsupported_version" // warning, never fatal
	KindHeaderSizeExceedsFile Kind = "header_size_exceeds_file"
	KindArchiveNotFound       Kind = "archive_not_found"
	KindInvalidPayload        Kind = "invalid_payload"

	// Archive reading
	KindCorruptArchive Kind = "corrupt_archive"
	KindEntryNotFound  Kind = "entry_not_found"

	// Manifest validation
	KindManifestNotFound        Kind = "manifest_not_found"
	KindManifestParseError      Kind = "manifest_parse_error"
	KindNameRequired            Kind = "name_required"
	KindVersionRequired         Kind = "version_required"
	KindManifestVersionRequired Kind = "manifest_version_required"

	// Orchestration
	KindPathNotExist  Kind = "path_not_exist"
	KindKindMismatch  Kind = "kind_mismatch"
	KindAlreadyExists Kind = "already_exists"

	// Registry
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
)

// Error is a typed validation error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a typed error with a custom message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Of creates a typed error with the kind's standard user-facing message.
func Of(kind Kind) *Error {
	return &Error{Kind: kind, Message: UserMessage(kind)}
}

// KindOf extracts the kind from an error, or empty for foreign errors.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// Is reports whether err is a typed error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// userMessages maps each kind to its single user-facing message.
var userMessages = map[Kind]string{
	KindTruncated:               "The package file is too short to be a signed container",
	KindMagicMismatch:           "The file is not a signed extension container",
	KindUnsupportedVersion:      "The container declares an unknown format version",
	KindHeaderSizeExceedsFile:   "The container header is inconsistent with the file size",
	KindArchiveNotFound:         "No extension archive was found inside the container",
	KindInvalidPayload:          "The container payload is not a valid extension archive",
	KindCorruptArchive:          "The extension archive is corrupt and cannot be read",
	KindEntryNotFound:           "A required file is missing from the extension archive",
	KindManifestNotFound:        "The extension has no manifest.json at its root",
	KindManifestParseError:      "The extension manifest could not be parsed",
	KindNameRequired:            "The extension manifest must declare a non-empty name",
	KindVersionRequired:         "The extension manifest must declare a non-empty version",
	KindManifestVersionRequired: "The extension manifest must declare an integer manifest_version",
	KindPathNotExist:            "The selected path does not exist",
	KindKindMismatch:            "The package does not match its declared kind",
	KindAlreadyExists:           "This extension is already installed",
	KindNotFound:                "No such extension",
	KindInvalidState:            "The extension is not in a state that allows this operation",
}

// UserMessage returns the localized message for a kind.
// Unknown kinds get an empty string; callers fall back to the raw error.
func UserMessage(kind Kind) string {
	return userMessages[kind]
}

// MessageFor returns the user-facing message for any error: the mapped
// message for typed errors, the raw text otherwise.
func MessageFor(err error) string {
	if e, ok := err.(*Error); ok {
		if msg := UserMessage(e.Kind); msg != "" {
			return msg
		}
		return e.Message
	}
	return err.Error()
}
