// Package domain holds the core entities of the card-table agent:
// raw tag observations, debounced stable hands, and the per-position
// state projection served to API consumers.
package domain

import (
	"encoding/hex"
	"strings"
	"time"
)

// UIDHex formats raw tag UID bytes as contiguous uppercase hex, the
// canonical identifier form throughout the agent.
func UIDHex(uid []byte) string {
	return strings.ToUpper(hex.EncodeToString(uid))
}

// TagObservation is a single raw sighting of a tag at a position.
// Observations are immutable once created; they age out of the recency
// window or are evicted from the bounded detection history.
type TagObservation struct {
	// UID is the tag serial number as contiguous uppercase hex.
	UID string `json:"uid"`

	// Label is the mapped card label at observation time, empty if the
	// UID is unmapped.
	Label string `json:"label,omitempty"`

	// Time is when the poll loop recorded the sighting.
	Time time.Time `json:"timestamp"`
}
