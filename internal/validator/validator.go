// Package validator orchestrates package validation: input-kind inference,
// container decoding, archive opening and manifest validation, normalized
// into a ValidationResult the display layer can render directly.
package validator

import (
	"bytes"
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sitedeck/sitedeck/backend/internal/archive"
	"github.com/sitedeck/sitedeck/backend/internal/crx"
	"github.com/sitedeck/sitedeck/backend/internal/logging"
	"github.com/sitedeck/sitedeck/backend/internal/manifest"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
	"github.com/sitedeck/sitedeck/backend/internal/shared/utils"
)

// Index answers whether a derived extension id is already installed.
type Index interface {
	ExistsID(id string) bool
}

// RecoveryMetrics counts container payload recovery scans by outcome.
type RecoveryMetrics interface {
	RecordRecoveryScan(outcome string)
}

// Validator validates user-selected package paths.
type Validator struct {
	index      Index
	identifier *utils.ExtensionIdentifier
	logger     *logging.Logger
	metrics    RecoveryMetrics

	// group serializes concurrent validations of the same path; distinct
	// paths proceed in parallel.
	group singleflight.Group
}

// New creates a validator backed by the given registry index.
func New(index Index, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Validator{
		index:      index,
		identifier: utils.NewExtensionIdentifier(nil),
		logger:     logger.Named("validator"),
	}
}

// WithMetrics attaches a recovery-scan counter and returns the validator.
func (v *Validator) WithMetrics(m RecoveryMetrics) *Validator {
	v.metrics = m
	return v
}

func (v *Validator) recordRecovery(outcome string) {
	if v.metrics != nil {
		v.metrics.RecordRecoveryScan(outcome)
	}
}

// Inspection is the full outcome of examining a package, reused by the
// install path so install never re-implements validation.
type Inspection struct {
	Kind     types.PackageKind
	Manifest *types.Manifest

	// ID is the derived stable extension id for this package.
	ID string

	// Payload holds the archive bytes for archive/container kinds so
	// install can extract without re-decoding. Nil for directories.
	Payload []byte

	Warnings []string
}

// Validate validates a path and reports a normalized result. Validation
// performs filesystem reads only; no writes ever happen here.
func (v *Validator) Validate(ctx context.Context, path string, declared *types.PackageKind) *types.ValidationResult {
	insp, err := v.Inspect(ctx, path, declared)
	if err != nil {
		if e, ok := err.(*errs.Error); ok {
			return &types.ValidationResult{
				Valid:     false,
				ErrorKind: string(e.Kind),
				Message:   errs.MessageFor(e),
			}
		}
		// Unexpected internal errors surface their raw text rather than
		// crashing the install pipeline.
		return &types.ValidationResult{Valid: false, Message: err.Error()}
	}

	return &types.ValidationResult{
		Valid:    true,
		Manifest: insp.Manifest,
		Warnings: insp.Warnings,
	}
}

// Inspect runs the full pipeline and returns the raw inspection.
// Concurrent calls for the same path share one execution.
func (v *Validator) Inspect(ctx context.Context, path string, declared *types.PackageKind) (*Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := v.group.DoChan(path, func() (interface{}, error) {
		return v.inspect(path, declared)
	})

	select {
	case <-ctx.Done():
		// The in-flight inspection finishes on its own; the result is
		// simply discarded. Nothing was written, so no cleanup.
		v.group.Forget(path)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Inspection), nil
	}
}

func (v *Validator) inspect(path string, declared *types.PackageKind) (*Inspection, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Of(errs.KindPathNotExist)
	}

	kind, err := v.resolveKind(path, info.IsDir(), declared)
	if err != nil {
		return nil, err
	}

	insp := &Inspection{Kind: kind}

	var src manifest.Source
	switch kind {
	case types.KindDirectory:
		src = manifest.DirSource{Dir: path}

	case types.KindArchive:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.New(errs.KindCorruptArchive, "cannot read archive: %v", err)
		}
		reader, err := archive.Open(data)
		if err != nil {
			return nil, err
		}
		insp.Payload = data
		src = manifest.ArchiveSource{Reader: reader}

	case types.KindSignedContainer:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.New(errs.KindCorruptArchive, "cannot read container: %v", err)
		}
		payload, err := crx.Decode(data)
		if err != nil {
			if errs.Is(err, errs.KindArchiveNotFound) {
				v.recordRecovery("exhausted")
			}
			return nil, err
		}
		for _, w := range payload.Warnings {
			v.logger.Warn("Container decoded with warning",
				zap.String("path", path), zap.String("warning", w))
		}
		if payload.Recovered {
			v.recordRecovery("found")
			v.logger.Info("Container payload located by recovery scan",
				zap.String("path", path), zap.Int("offset", payload.Start))
		}
		insp.Warnings = payload.Warnings

		raw := data[payload.Start : payload.Start+payload.Length]
		reader, err := archive.Open(raw)
		if err != nil {
			return nil, err
		}
		insp.Payload = raw
		src = manifest.ArchiveSource{Reader: reader}
	}

	m, err := manifest.Validate(src)
	if err != nil {
		return nil, err
	}
	insp.Manifest = m

	// Idempotency guard: re-validating an installed, unchanged package
	// must not present as a fresh install.
	insp.ID = v.identifier.DeriveID(m.Name, path)
	if v.index != nil && v.index.ExistsID(insp.ID) {
		return nil, errs.Of(errs.KindAlreadyExists)
	}

	return insp, nil
}

// resolveKind applies the declared kind or infers one from the path.
func (v *Validator) resolveKind(path string, isDir bool, declared *types.PackageKind) (types.PackageKind, error) {
	if declared != nil {
		if *declared == types.KindDirectory != isDir {
			return "", errs.New(errs.KindKindMismatch,
				"declared kind %s does not match path", *declared)
		}
		return *declared, nil
	}
	if isDir {
		return types.KindDirectory, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errs.Of(errs.KindPathNotExist)
	}
	defer f.Close()

	head := make([]byte, 4)
	n, _ := f.Read(head)
	if n == 4 && bytes.Equal(head, crx.Magic) {
		return types.KindSignedContainer, nil
	}
	return types.KindArchive, nil
}
