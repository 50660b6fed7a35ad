// Package memory provides in-process implementations of the storage ports
// for tests and local runs. Nothing is persisted.
package memory

import (
	"context"
	"sort"
	"sync"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	"chatter/infrastructure/persistence"
	pkgerrors "chatter/pkg/errors"
)

type preferenceRecord struct {
	pref           *entities.Preference
	lastModifiedBy string
}

// PreferenceGraph is an in-memory ports.PreferenceGraph with the same
// idempotency rule as the DynamoDB store
type PreferenceGraph struct {
	mu      sync.RWMutex
	records map[valueobjects.PreferenceKey]*preferenceRecord
}

// NewPreferenceGraph creates an empty graph
func NewPreferenceGraph() *PreferenceGraph {
	return &PreferenceGraph{records: make(map[valueobjects.PreferenceKey]*preferenceRecord)}
}

var _ ports.PreferenceGraph = (*PreferenceGraph)(nil)

// GetPreference returns a copy of the stored record
func (g *PreferenceGraph) GetPreference(ctx context.Context, key valueobjects.PreferenceKey) (*entities.Preference, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, ok := g.records[key]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("preference " + key.String())
	}
	return rec.pref.Snapshot(), nil
}

// GetPreferences returns copies of the stored records among keys
func (g *PreferenceGraph) GetPreferences(ctx context.Context, keys []valueobjects.PreferenceKey) ([]*entities.Preference, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*entities.Preference, 0, len(keys))
	for _, key := range keys {
		if rec, ok := g.records[key]; ok {
			out = append(out, rec.pref.Snapshot())
		}
	}
	return out, nil
}

// PutPreference overwrites the record, clearing its idempotency
// fingerprint. Overwriting an existing record advances its version past the
// stored one.
func (g *PreferenceGraph) PutPreference(ctx context.Context, pref *entities.Preference) error {
	if pref == nil {
		return pkgerrors.NewValidationError("preference is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	stored := pref.Snapshot()
	if prev, ok := g.records[pref.Key()]; ok && prev.pref.Version() >= stored.Version() {
		stored.WithVersion(prev.pref.Version() + 1)
	}
	g.records[pref.Key()] = &preferenceRecord{pref: stored}
	return nil
}

// DeletePreference removes the record
func (g *PreferenceGraph) DeletePreference(ctx context.Context, key valueobjects.PreferenceKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.records, key)
	return nil
}

// UpdatePreference applies req unless its fingerprint matches the last
// update applied to the same record, and returns a copy of the updated record
func (g *PreferenceGraph) UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fingerprint := persistence.Fingerprint(actingUserID, req, action)
	key := req.Target().Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[key]
	if !ok {
		rec = &preferenceRecord{pref: entities.NewPreferenceWithPopularity(key, 0)}
		g.records[key] = rec
	}
	if rec.lastModifiedBy == fingerprint {
		return nil, pkgerrors.ErrMutationAlreadyApplied
	}

	req.ApplyTo(rec.pref)
	rec.lastModifiedBy = fingerprint
	return rec.pref.Snapshot(), nil
}

// BatchGetPreferences pages through category in key order. The key set is
// captured on the first call to Next.
func (g *PreferenceGraph) BatchGetPreferences(category valueobjects.Category, batchSize int) ports.PreferenceBatchIterator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &batchIterator{graph: g, category: category, batchSize: batchSize}
}

// Len returns the number of stored records
func (g *PreferenceGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

func (g *PreferenceGraph) keysIn(category valueobjects.Category) []valueobjects.PreferenceKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var keys []valueobjects.PreferenceKey
	for key := range g.records {
		if key.Category() == category {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID() < keys[j].ID() })
	return keys
}

type batchIterator struct {
	graph     *PreferenceGraph
	category  valueobjects.Category
	batchSize int
	keys      []valueobjects.PreferenceKey
	started   bool
	offset    int
}

func (it *batchIterator) Next(ctx context.Context) ([]*entities.Preference, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !it.started {
		it.keys = it.graph.keysIn(it.category)
		it.started = true
	}
	if it.offset >= len(it.keys) {
		return nil, false, nil
	}

	end := it.offset + it.batchSize
	if end > len(it.keys) {
		end = len(it.keys)
	}
	page, err := it.graph.GetPreferences(ctx, it.keys[it.offset:end])
	if err != nil {
		return nil, false, err
	}
	it.offset = end
	return page, true, nil
}
