// Package record persists structured memory and observation rows in SQLite.
package record

import (
	"errors"
	"time"
)

// Common errors for record store operations.
var (
	// ErrPersistence wraps any failure of the underlying database.
	ErrPersistence = errors.New("record store failure")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
)

// MemoryType categorizes a memory entry.
type MemoryType string

const (
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeFact         MemoryType = "fact"
	MemoryTypePattern      MemoryType = "pattern"
	MemoryTypeDesignSystem MemoryType = "design_system"
)

// Valid reports whether t is one of the five memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypePreference, MemoryTypeDecision, MemoryTypeFact, MemoryTypePattern, MemoryTypeDesignSystem:
		return true
	}
	return false
}

// ObservationType categorizes an observation.
type ObservationType string

const (
	ObservationTypeBugfix    ObservationType = "bugfix"
	ObservationTypeFeature   ObservationType = "feature"
	ObservationTypeRefactor  ObservationType = "refactor"
	ObservationTypeDiscovery ObservationType = "discovery"
	ObservationTypeDecision  ObservationType = "decision"
	ObservationTypeChange    ObservationType = "change"
	ObservationTypeInsight   ObservationType = "insight"
)

// Valid reports whether t is one of the seven observation types.
func (t ObservationType) Valid() bool {
	switch t {
	case ObservationTypeBugfix, ObservationTypeFeature, ObservationTypeRefactor,
		ObservationTypeDiscovery, ObservationTypeDecision, ObservationTypeChange, ObservationTypeInsight:
		return true
	}
	return false
}

// MemoryEntry is a free-text memory row.
//
// EmbeddingID is a marker indicating "a vector exists for this row", not
// a dereferenceable path: a row carrying the marker with no vector twin
// is a detectable inconsistency left to a repair pass, never silently
// repaired inline.
type MemoryEntry struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Content     string     `json:"content"`
	Type        MemoryType `json:"type"`
	Context     string     `json:"context,omitempty"`
	Confidence  float64    `json:"confidence"`
	EmbeddingID string     `json:"embedding_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Observation is a structured observation row from an agent session.
type Observation struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Type          ObservationType `json:"type"`
	Title         string          `json:"title"`
	Narrative     string          `json:"narrative,omitempty"`
	Facts         []string        `json:"facts"`
	Concepts      []string        `json:"concepts"`
	FilesModified []string        `json:"files_modified"`
	FilesRead     []string        `json:"files_read"`
	Confidence    float64         `json:"confidence"`
	EmbeddingID   string          `json:"embedding_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ObservationIndex is the compact projection used for progressive
// disclosure: enough to decide whether the full detail is worth
// fetching, without the narrative/facts/files bulk.
type ObservationIndex struct {
	ID         string          `json:"id"`
	Type       ObservationType `json:"type"`
	Title      string          `json:"title"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}
