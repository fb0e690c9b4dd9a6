package core

import (
	"strings"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// soundStreamSuffix marks streamed audio, which the game cannot load from redirected files
const soundStreamSuffix = ".scd"

// PathFilter decides which game paths never take part in resolution
type PathFilter struct {
	SoundStreaming   bool     // Allow .scd redirections
	ExcludedSuffixes []string // Extra suffixes to drop, compared case-insensitively
}

// Excluded reports whether p must be skipped entirely
func (f PathFilter) Excluded(p domain.GamePath) bool {
	if !f.SoundStreaming && p.HasSuffix(soundStreamSuffix) {
		return true
	}
	for _, s := range f.ExcludedSuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && p.HasSuffix(s) {
			return true
		}
	}
	return false
}
