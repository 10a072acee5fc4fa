package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"strainmanifest/internal/artifacts"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
	"strainmanifest/internal/table"
)

// Snapshot is the registry as loaded at the start of a run.
type Snapshot struct {
	IDs    []string
	Exists bool
	raw    []byte
}

// Result reports the outcome of Update.
type Result struct {
	IDs     []string
	Added   []string
	Written bool
	Record  artifacts.Record
}

// Registry reads and writes the strain registry artifact.
type Registry struct {
	store  artifacts.Store
	logger *slog.Logger
	name   string
}

// New constructs a Registry for the artifact name.
func New(store artifacts.Store, logger *slog.Logger, name string) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{store: store, logger: logger, name: name}
}

// Name returns the registry artifact name.
func (r *Registry) Name() string {
	return r.name
}

// Load reads the registry. An absent file yields an empty snapshot; content
// that is not a JSON array of strings yields a RegistryCorruptionError.
// Repeated entries are collapsed to their first occurrence.
func (r *Registry) Load(ctx context.Context) (Snapshot, error) {
	rc, err := r.store.OpenUnverified(ctx, r.name)
	if errors.Is(err, artifacts.ErrNotFound) {
		return Snapshot{IDs: []string{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("open registry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read registry: %w", err)
	}
	ids, err := Decode(data)
	if err != nil {
		return Snapshot{}, &failure.RegistryCorruptionError{Path: r.store.Path(r.name), Cause: err}
	}
	deduped := dedupe(ids)
	if dropped := len(ids) - len(deduped); dropped > 0 {
		r.logger.Warn("registry contained repeated or empty entries",
			logging.String(logging.FieldArtifact, r.name),
			logging.Int("collapsed", dropped),
		)
	}
	return Snapshot{IDs: deduped, Exists: true, raw: data}, nil
}

// Decode parses registry content strictly.
func Decode(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("file is empty")
	}
	if trimmed[0] != '[' {
		return nil, errors.New("content is not a JSON array")
	}
	var entries []*string
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("entry %d is null", i)
		}
		ids[i] = *entry
	}
	return ids, nil
}

// Merge returns prior followed by the IDs of current not already present, in
// first-seen order, plus the IDs that were added.
func Merge(prior, current []string) (merged []string, added []string) {
	seen := make(map[string]struct{}, len(prior)+len(current))
	merged = make([]string, 0, len(prior)+len(current))
	for _, id := range prior {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range current {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
		added = append(added, id)
	}
	return merged, added
}

// Update merges current into snap and commits the registry. Nothing is
// written when the encoded registry is unchanged.
func (r *Registry) Update(ctx context.Context, snap Snapshot, current []string) (Result, error) {
	merged, added := Merge(snap.IDs, current)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return Result{}, fmt.Errorf("encode registry: %w", err)
	}
	result := Result{IDs: merged, Added: added}
	if snap.Exists && bytes.Equal(encoded, snap.raw) {
		r.logger.Info("strain registry unchanged",
			logging.String(logging.FieldArtifact, r.name),
			logging.Int("strains", len(merged)),
		)
		return result, nil
	}

	rec, err := r.store.Commit(ctx, r.name, artifacts.KindRegistry, func(w io.Writer) (int, error) {
		if _, err := w.Write(encoded); err != nil {
			return 0, err
		}
		return len(merged), nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("commit registry: %w", err)
	}
	result.Written = true
	result.Record = rec
	r.logger.Info("strain registry updated",
		logging.String(logging.FieldArtifact, rec.Name),
		logging.Int("strains", len(merged)),
		logging.Strings("added", added),
	)
	return result, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = table.Normalize(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
