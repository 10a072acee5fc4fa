package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRetrieval          = errors.New("retrieval error")
	ErrMerge              = errors.New("merge error")
	ErrRegistryCorruption = errors.New("registry corruption")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrInconsistentState  = errors.New("inconsistent results directory")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RetrievalError reports that an accession could not be fetched.
type RetrievalError struct {
	Accession string
	Cause     error
}

func (e *RetrievalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("retrieve %s: unknown cause", e.Accession)
	}
	return fmt.Sprintf("retrieve %s: %v", e.Accession, e.Cause)
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

// MergeError reports a raw record file that could not be merged.
type MergeError struct {
	File  string
	Cause error
}

func (e *MergeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("merge %s: unknown cause", e.File)
	}
	return fmt.Sprintf("merge %s: %v", e.File, e.Cause)
}

func (e *MergeError) Unwrap() error { return e.Cause }

func (e *MergeError) Is(target error) bool { return target == ErrMerge }

// RegistryCorruptionError reports a persisted registry that cannot be trusted.
// It is always fatal; treating the registry as empty would shrink it.
type RegistryCorruptionError struct {
	Path  string
	Cause error
}

func (e *RegistryCorruptionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("registry %s is corrupt", e.Path)
	}
	return fmt.Sprintf("registry %s is corrupt: %v", e.Path, e.Cause)
}

func (e *RegistryCorruptionError) Unwrap() error { return e.Cause }

func (e *RegistryCorruptionError) Is(target error) bool { return target == ErrRegistryCorruption }

// Kind returns a short classification label for err, used in logs and the
// run ledger.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrMerge):
		return "merge"
	case errors.Is(err, ErrRegistryCorruption):
		return "registry_corruption"
	case errors.Is(err, ErrInconsistentState):
		return "inconsistent_state"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
