package domain

import "time"

// CollectionInfo identifies a named set of mod settings
type CollectionInfo struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
