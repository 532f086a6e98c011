package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/record"
)

type memoryAddInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project the memory belongs to"`
	Content   string `json:"content" jsonschema:"required,Free-text content to remember"`
	Type      string `json:"type" jsonschema:"required,Memory type: preference | decision | fact | pattern | design_system"`
	Context   string `json:"context,omitempty" jsonschema:"Optional context note stored alongside the content"`
}

type memoryAddOutput struct {
	ID           string `json:"id" jsonschema:"Identifier of the stored memory"`
	EmbeddingDim int    `json:"embedding_dim" jsonschema:"Dimensionality of the stored embedding"`
}

type memoryStatsInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project to report on"`
}

type memoryStatsOutput struct {
	ProjectID    string `json:"project_id"`
	Memories     int64  `json:"memories" jsonschema:"Number of stored memories"`
	Observations int64  `json:"observations" jsonschema:"Number of stored observations"`
}

func (s *Server) registerMemoryTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_add",
		Description: "Store a memory for later semantic retrieval. The content is embedded and indexed; type classifies the memory (preference, decision, fact, pattern, design_system).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoryAddInput) (*mcp.CallToolResult, memoryAddOutput, error) {
		result, err := s.memorySvc.AddMemory(ctx, args.ProjectID, args.Content, record.MemoryType(args.Type), args.Context)
		if err != nil {
			return nil, memoryAddOutput{}, err
		}
		return nil, memoryAddOutput{ID: result.ID, EmbeddingDim: result.EmbeddingDim}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Report how many memories and observations a project holds.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoryStatsInput) (*mcp.CallToolResult, memoryStatsOutput, error) {
		memories, observations, err := s.records.Counts(ctx, args.ProjectID)
		if err != nil {
			s.logger.Error("stats query failed", zap.String("project_id", args.ProjectID), zap.Error(err))
			return nil, memoryStatsOutput{}, err
		}
		return nil, memoryStatsOutput{
			ProjectID:    args.ProjectID,
			Memories:     memories,
			Observations: observations,
		}, nil
	})
}
