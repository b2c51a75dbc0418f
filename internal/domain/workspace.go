package domain

import "github.com/PabloGalante/tabula/internal/table"

// Workspace is the process-local table state of a session.
type Workspace struct {
	// Dataset is the most recently uploaded table. Nil until one is loaded.
	Dataset *table.Store

	// Pending is the last view-style result (top/bottom/filter) waiting for
	// an explicit commit.
	Pending *table.Table
}
