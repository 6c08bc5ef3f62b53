// Package store keeps the most recently published aggregates.
package store

import (
	"time"
)

// Published is one aggregate as served to consumers.
type Published struct {
	Name        string    `json:"name"`
	XML         []byte    `json:"xml"`
	RunID       string    `json:"run_id"`
	PublishedAt time.Time `json:"published_at"`

	// Expires is when the aggregate stops being served. Zero never expires.
	Expires time.Time `json:"expires,omitempty"`

	// Entities is the attribute index of the aggregate, keyed by entityID.
	Entities map[string]map[string][]string `json:"entities"`

	// ValidationErrors holds, per source, the records dropped as invalid.
	ValidationErrors map[string]map[string]string `json:"validation_errors,omitempty"`
}

// TTL returns how long p remains servable at now. ok is false when p has
// already expired.
func (p *Published) TTL(now time.Time) (ttl time.Duration, ok bool) {
	if p.Expires.IsZero() {
		return 0, true
	}
	ttl = p.Expires.Sub(now)
	return ttl, ttl > 0
}
