package domain

import "time"

// Asset represents an uploaded input (e.g. a reference image) owned by the
// issuing provider account. Assets are immutable once created.
type Asset struct {
	AssetID     string
	URL         string
	ContentType string
	Size        int64
	Filename    string
	CreatedAt   time.Time
}
