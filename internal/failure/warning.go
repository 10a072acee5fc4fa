package failure

import "fmt"

// WarningKind identifies the stage that raised a non-fatal condition.
type WarningKind string

const (
	WarningFetch     WarningKind = "fetch"
	WarningFilter    WarningKind = "filter"
	WarningPartition WarningKind = "partition"
)

// Warning is a non-fatal condition counted during a run and reported at the end.
type Warning struct {
	Kind    WarningKind
	Count   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%d)", w.Kind, w.Message, w.Count)
}
