package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Tool is anything the model may call during a chat: a local function over
// the ledger, or another expert wrapped behind a question interface.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

// Toolbox resolves a function call emitted by the model into its response.
type Toolbox func(context.Context, *genai.FunctionCall) *genai.FunctionResponse

// NewToolbox builds a Toolbox dispatching on the declared tool name. A call
// naming no known tool is answered with an error response rather than
// failing the chat, so the model can recover.
func NewToolbox[T Tool](tools []T) Toolbox {
	return func(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
		for _, tool := range tools {
			if tool.Declaration().Name == call.Name {
				return tool.Call(ctx, call.ID, call.Args)
			}
		}
		return &genai.FunctionResponse{
			ID:   call.ID,
			Name: call.Name,
			Response: map[string]any{
				"error": fmt.Sprintf("there is no tool named %q", call.Name),
			},
		}
	}
}

// Declarations collects the tools' declarations for a chat config.
func Declarations[T Tool](tools []T) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		decls[i] = tool.Declaration()
	}
	return decls
}
