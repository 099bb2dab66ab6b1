package ports

import "context"

// LabelResolver maps a tag UID to its card label.
type LabelResolver interface {
	// Lookup returns the label for a UID, or ok=false if unmapped.
	Lookup(uid string) (label string, ok bool)
}

// LabelStore extends LabelResolver with administrative updates. Updates
// must become visible to subsequent stability recomputations; they need
// not interrupt one in flight.
type LabelStore interface {
	LabelResolver

	// Assign maps a UID to a label and persists the mapping.
	Assign(ctx context.Context, uid, label string) error

	// Clear removes a UID's mapping and persists the change.
	Clear(ctx context.Context, uid string) error

	// All returns a copy of the current mapping.
	All() map[string]string
}

// MapRepository persists the UID to label map.
type MapRepository interface {
	// Load retrieves the stored map. A missing file yields an empty
	// map and nil error; only real read failures return an error.
	Load(ctx context.Context) (map[string]string, error)

	// Save persists the map atomically (temp file, then rename).
	Save(ctx context.Context, m map[string]string) error
}
