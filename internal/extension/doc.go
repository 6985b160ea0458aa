// Package extension owns the set of installed extensions and their
// lifecycle: install, enable/disable, remove.
//
// The registry is the single owner of extension records. All mutations are
// serialized per extension id; installs are additionally funneled through
// the validator's per-path guard so two installs of the same package can
// never race on id assignment or filesystem writes. Records persist as one
// JSON file each under the managed state directory, with the in-memory
// index rebuilt from disk at startup.
package extension
