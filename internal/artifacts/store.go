package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"strainmanifest/internal/failure"
)

// Kind classifies an artifact by the stage that produces it.
type Kind string

const (
	KindRaw      Kind = "raw"
	KindArchive  Kind = "archive"
	KindMerged   Kind = "merged"
	KindFiltered Kind = "filtered"
	KindStrain   Kind = "strain"
	KindRegistry Kind = "registry"
)

// Status is the ledger state of an artifact.
type Status string

const (
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

var (
	// ErrNotFound indicates neither a file nor a ledger entry exists.
	ErrNotFound = errors.New("artifact not found")
	// ErrIncomplete indicates the ledger entry was never marked complete,
	// typically after an interrupted run.
	ErrIncomplete = errors.New("artifact incomplete")
	// ErrInconsistent indicates the file and its ledger entry disagree.
	ErrInconsistent = fmt.Errorf("%w: artifact file and ledger disagree", failure.ErrInconsistentState)
)

// Record is the ledger entry of an artifact.
type Record struct {
	Name      string
	Kind      Kind
	Status    Status
	Checksum  string
	Rows      int
	Size      int64
	RunID     string
	Sources   []string
	UpdatedAt time.Time
}

// Complete reports whether the record was finalized.
func (r Record) Complete() bool {
	return r.Status == StatusComplete
}

// WriteFunc streams artifact content to w and returns the number of data rows
// written.
type WriteFunc func(w io.Writer) (int, error)

// CommitOption customizes a Commit call.
type CommitOption func(*commitOptions)

type commitOptions struct {
	sources []string
}

// WithSources records the ordered inputs an artifact was derived from.
func WithSources(sources []string) CommitOption {
	return func(o *commitOptions) {
		o.sources = append([]string(nil), sources...)
	}
}

// Store reads and writes named artifacts. Names are slash-separated paths
// relative to the store root.
type Store interface {
	Stat(ctx context.Context, name string) (Record, error)
	Open(ctx context.Context, name string) (io.ReadCloser, Record, error)
	OpenUnverified(ctx context.Context, name string) (io.ReadCloser, error)
	Commit(ctx context.Context, name string, kind Kind, write WriteFunc, opts ...CommitOption) (Record, error)
	Remove(ctx context.Context, name string) error
	List(ctx context.Context, kind Kind) ([]Record, error)
	Path(name string) string
}
