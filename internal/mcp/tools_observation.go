package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/memorybank"
	"github.com/fyrsmithlabs/recalld/internal/record"
)

type observationAddInput struct {
	ProjectID     string   `json:"project_id" jsonschema:"required,Project the observation belongs to"`
	SessionID     string   `json:"session_id,omitempty" jsonschema:"Optional session identifier for grouping"`
	Type          string   `json:"type" jsonschema:"required,Observation type: bugfix | feature | refactor | discovery | decision | change | insight"`
	Title         string   `json:"title" jsonschema:"required,One-line headline of what happened"`
	Narrative     string   `json:"narrative,omitempty" jsonschema:"Longer prose account of the observation"`
	Facts         []string `json:"facts,omitempty" jsonschema:"Discrete facts extracted from the observation"`
	Concepts      []string `json:"concepts,omitempty" jsonschema:"Concept tags for grouping"`
	FilesModified []string `json:"files_modified,omitempty" jsonschema:"Files changed during the observed work"`
	FilesRead     []string `json:"files_read,omitempty" jsonschema:"Files consulted during the observed work"`
	Confidence    *float64 `json:"confidence,omitempty" jsonschema:"Initial confidence in [0,1]. Defaults to 1.0 when omitted"`
}

type observationAddOutput struct {
	ID           string `json:"id" jsonschema:"Identifier of the stored observation"`
	EmbeddingDim int    `json:"embedding_dim" jsonschema:"Dimensionality of the stored embedding"`
}

type observationListInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project to list observations for"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum entries to return (default: 50)"`
}

type observationIndexEntry struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

type observationListOutput struct {
	Observations []observationIndexEntry `json:"observations" jsonschema:"Index entries, newest first. Fetch full detail with observation_get"`
	Count        int                     `json:"count"`
}

type observationGetInput struct {
	ID string `json:"id" jsonschema:"required,Observation identifier from observation_list or memory_search"`
}

type observationGetOutput struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	SessionID     string   `json:"session_id,omitempty"`
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Narrative     string   `json:"narrative,omitempty"`
	Facts         []string `json:"facts,omitempty"`
	Concepts      []string `json:"concepts,omitempty"`
	FilesModified []string `json:"files_modified,omitempty"`
	FilesRead     []string `json:"files_read,omitempty"`
	Confidence    float64  `json:"confidence" jsonschema:"Confidence after the access boost"`
	CreatedAt     string   `json:"created_at"`
}

// resolveConfidence distinguishes an omitted confidence (nil, defaults
// to 1.0) from an explicit value. A caller-supplied 0 is a legitimate
// zero-confidence observation and survives as supplied.
func resolveConfidence(c *float64) float64 {
	if c == nil {
		return 1.0
	}
	return *c
}

func (s *Server) registerObservationTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "observation_add",
		Description: "Record a structured observation about work that happened: a typed event with title, narrative, extracted facts and concept tags. Embedded and indexed for semantic search.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args observationAddInput) (*mcp.CallToolResult, observationAddOutput, error) {
		result, err := s.memorySvc.AddObservation(ctx, memorybank.ObservationParams{
			ProjectID:     args.ProjectID,
			SessionID:     args.SessionID,
			Type:          record.ObservationType(args.Type),
			Title:         args.Title,
			Narrative:     args.Narrative,
			Facts:         args.Facts,
			Concepts:      args.Concepts,
			FilesModified: args.FilesModified,
			FilesRead:     args.FilesRead,
			Confidence:    resolveConfidence(args.Confidence),
		})
		if err != nil {
			return nil, observationAddOutput{}, err
		}
		return nil, observationAddOutput{ID: result.ID, EmbeddingDim: result.EmbeddingDim}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "observation_list",
		Description: "List a project's observations as a compact index (id, type, title, confidence). Keeps context small; use observation_get for full detail.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args observationListInput) (*mcp.CallToolResult, observationListOutput, error) {
		limit := args.Limit
		if limit <= 0 {
			limit = 50
		}
		index, err := s.records.ListObservationIndex(ctx, args.ProjectID, limit)
		if err != nil {
			return nil, observationListOutput{}, err
		}
		entries := make([]observationIndexEntry, len(index))
		for i, o := range index {
			entries[i] = observationIndexEntry{
				ID:         o.ID,
				Type:       string(o.Type),
				Title:      o.Title,
				Confidence: o.Confidence,
				CreatedAt:  o.CreatedAt.Format(time.RFC3339),
			}
		}
		return nil, observationListOutput{Observations: entries, Count: len(entries)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "observation_get",
		Description: "Fetch an observation's full detail. Accessing an observation raises its confidence: records that keep proving useful decay slower.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args observationGetInput) (*mcp.CallToolResult, observationGetOutput, error) {
		obs, err := s.records.GetObservation(ctx, args.ID)
		if err != nil {
			return nil, observationGetOutput{}, err
		}

		confidence := obs.Confidence
		if boosted, err := s.lifecycle.Boost(ctx, args.ID, s.cfg.BoostAmount); err != nil {
			// The read already succeeded; a failed boost is not worth
			// failing the call over.
			s.logger.Warn("access boost failed", zap.String("id", args.ID), zap.Error(err))
		} else {
			confidence = boosted
		}

		return nil, observationGetOutput{
			ID:            obs.ID,
			ProjectID:     obs.ProjectID,
			SessionID:     obs.SessionID,
			Type:          string(obs.Type),
			Title:         obs.Title,
			Narrative:     obs.Narrative,
			Facts:         obs.Facts,
			Concepts:      obs.Concepts,
			FilesModified: obs.FilesModified,
			FilesRead:     obs.FilesRead,
			Confidence:    confidence,
			CreatedAt:     obs.CreatedAt.Format(time.RFC3339),
		}, nil
	})
}
