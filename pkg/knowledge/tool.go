// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"context"
	"encoding/json"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// SearchToolName is the name of the tool returned by SearchTool.
const SearchToolName = "search_knowledge_base"

// SearchTool exposes Search to a model.
func (b *Base) SearchTool() core.Tool {
	return tools.NewFunctionTool(SearchToolName,
		"Use this function to search the knowledge base for information about a query.",
		tools.Object(map[string]any{
			"query": tools.String("The query to search for."),
		}, "query"),
		func(ctx context.Context, args map[string]any) (any, error) {
			query := tools.StringArg(args, "query")
			if query == "" {
				query = tools.StringArg(args, "input")
			}
			if query == "" {
				return nil, errors.New(errors.CodeInvalidInput, "query is required", nil)
			}
			docs, err := b.Search(ctx, query, 0)
			if err != nil {
				return nil, err
			}
			if len(docs) == 0 {
				return "No documents found", nil
			}
			out, err := json.Marshal(docs)
			if err != nil {
				return nil, err
			}
			return string(out), nil
		})
}
