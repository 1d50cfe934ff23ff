// Package backend builds the spreadsheet mirror selected by configuration.
package backend

import (
	"context"

	"gestion/internal/sheets"
)

// MirrorType selects where ventas and gastos are mirrored.
type MirrorType string

const (
	NoMirror     MirrorType = "none"
	MemoryMirror MirrorType = "memory"
	SheetsMirror MirrorType = "sheets"
)

func (t MirrorType) String() string { return string(t) }

// IsValid reports whether t is a known mirror type.
func (t MirrorType) IsValid() bool {
	switch t {
	case NoMirror, MemoryMirror, SheetsMirror:
		return true
	}
	return false
}

// CleanupFunc releases resources held by a mirror.
type CleanupFunc func() error

// Result holds the mirror and an optional cleanup function. Mirror is nil
// for NoMirror.
type Result struct {
	Mirror  sheets.Mirror
	Cleanup CleanupFunc
}

// Factory creates mirrors from configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*Result, error)
}

// Config holds what a mirror needs to be created.
type Config struct {
	Type MirrorType

	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// EnsureTabs creates missing tabs when the sheets mirror starts.
	EnsureTabs bool
}
