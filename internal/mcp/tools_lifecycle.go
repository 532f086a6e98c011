package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type memoryDecayInput struct {
	ProjectID string   `json:"project_id" jsonschema:"required,Project whose observations to age"`
	Factor    *float64 `json:"factor,omitempty" jsonschema:"Multiplier applied to every confidence, in [0,1]. Defaults to 0.95 when omitted"`
}

type memoryDecayOutput struct {
	ProjectID string  `json:"project_id"`
	Factor    float64 `json:"factor"`
	Rows      int64   `json:"rows" jsonschema:"Number of observations decayed"`
}

type memoryCompactInput struct {
	ProjectID     string   `json:"project_id" jsonschema:"required,Project to compact"`
	MinConfidence *float64 `json:"min_confidence,omitempty" jsonschema:"Remove records with confidence below this threshold. Defaults to the server's configured threshold when omitted"`
	KeepTop       *int     `json:"keep_top,omitempty" jsonschema:"Bound on how many records one pass removes, lowest confidence first. 0 means unbounded; defaults to the server's configured bound when omitted"`
}

type compactionItem struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Confidence    float64 `json:"confidence"`
	Removed       bool    `json:"removed"`
	VectorDeleted bool    `json:"vector_deleted"`
	Error         string  `json:"error,omitempty"`
}

type memoryCompactOutput struct {
	ProjectID string           `json:"project_id"`
	Removed   int              `json:"removed" jsonschema:"Records removed from the structured store"`
	Items     []compactionItem `json:"items" jsonschema:"Per-record outcome including best-effort vector deletion"`
}

// resolveDecayFactor treats nil as the omitted-field default. An
// explicit 0 zeroes every confidence and survives as supplied.
func resolveDecayFactor(f *float64) float64 {
	if f == nil {
		return 0.95
	}
	return *f
}

// resolveCompactBounds fills omitted fields from the configured
// defaults. Explicit zeroes are meaningful here: threshold 0 is a
// no-op sweep, keep_top 0 lifts the removal bound.
func resolveCompactBounds(minConfidence *float64, keepTop *int, cfg Config) (float64, int) {
	min, top := cfg.CompactMinConfidence, cfg.CompactKeepTop
	if minConfidence != nil {
		min = *minConfidence
	}
	if keepTop != nil {
		top = *keepTop
	}
	return min, top
}

func (s *Server) registerLifecycleTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_decay",
		Description: "Multiply every observation confidence in a project by a factor. Periodic decay ages out records that stop being accessed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoryDecayInput) (*mcp.CallToolResult, memoryDecayOutput, error) {
		factor := resolveDecayFactor(args.Factor)
		rows, err := s.lifecycle.Decay(ctx, args.ProjectID, factor)
		if err != nil {
			return nil, memoryDecayOutput{}, err
		}
		return nil, memoryDecayOutput{ProjectID: args.ProjectID, Factor: factor, Rows: rows}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_compact",
		Description: "Remove low-confidence records and their vector twins. Reports a per-record outcome; vector deletion is best-effort and a failure there leaves an orphaned vector, not a stale record.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoryCompactInput) (*mcp.CallToolResult, memoryCompactOutput, error) {
		minConfidence, keepTop := resolveCompactBounds(args.MinConfidence, args.KeepTop, *s.cfg)
		outcomes, err := s.lifecycle.Compact(ctx, args.ProjectID, minConfidence, keepTop)
		if err != nil {
			return nil, memoryCompactOutput{}, err
		}

		out := memoryCompactOutput{ProjectID: args.ProjectID}
		out.Items = make([]compactionItem, len(outcomes))
		for i, o := range outcomes {
			out.Items[i] = compactionItem{
				ID:            o.ID,
				Kind:          o.Kind,
				Confidence:    o.Confidence,
				Removed:       o.Removed,
				VectorDeleted: o.VectorDeleted,
				Error:         o.Error,
			}
			if o.Removed {
				out.Removed++
			}
		}
		return nil, out, nil
	})
}
