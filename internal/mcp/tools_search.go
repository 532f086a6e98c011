package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/recalld/internal/hybrid"
	"github.com/fyrsmithlabs/recalld/internal/memorybank"
)

type memorySearchInput struct {
	Query       string   `json:"query" jsonschema:"required,Natural-language search query"`
	ProjectID   string   `json:"project_id,omitempty" jsonschema:"Restrict results to one project"`
	Collections []string `json:"collections,omitempty" jsonschema:"Collections to search in precedence order (default: memories then observations)"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"Number of fused results to return"`
	Fusion      string   `json:"fusion,omitempty" jsonschema:"Merge algorithm: rrf | score_average"`
}

type searchHit struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score" jsonschema:"Fused relevance score, not a raw similarity"`
	Collection string         `json:"collection" jsonschema:"Collection whose payload was kept"`
	Payload    map[string]any `json:"payload"`
}

type memorySearchOutput struct {
	Results  []searchHit `json:"results"`
	Count    int         `json:"count"`
	Degraded []string    `json:"degraded,omitempty" jsonschema:"Collections that failed and contributed nothing"`
}

func (s *Server) registerSearchTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search memories and observations semantically, with keyword boosting and rank fusion across collections. Collections that fail are skipped and reported, never fatal.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memorySearchInput) (*mcp.CallToolResult, memorySearchOutput, error) {
		collections := args.Collections
		if len(collections) == 0 {
			collections = []string{memorybank.CollectionMemories, memorybank.CollectionObservations}
		}
		topK := args.TopK
		if topK <= 0 {
			topK = s.cfg.DefaultTopK
		}
		fusion := hybrid.Fusion(args.Fusion)
		if fusion == "" {
			fusion = s.cfg.Fusion
		}

		resp, err := s.engine.Search(ctx, args.Query, hybrid.Options{
			TopK:        topK,
			Collections: collections,
			ProjectID:   args.ProjectID,
			Fusion:      fusion,
			RRFK:        s.cfg.RRFK,
		})
		if err != nil {
			return nil, memorySearchOutput{}, err
		}

		out := memorySearchOutput{Degraded: resp.Degraded, Count: len(resp.Results)}
		out.Results = make([]searchHit, len(resp.Results))
		for i, r := range resp.Results {
			out.Results[i] = searchHit{
				ID:         r.ID,
				Score:      r.Score,
				Collection: r.Collection,
				Payload:    r.Payload.Map(),
			}
		}
		return nil, out, nil
	})
}
