package agent

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// Expert is one Gemini chat with a fixed role. The facilitator sees every
// other expert as a Tool it can ask questions to, and an expert may in turn
// carry its own Toolbox.
type Expert struct {
	Name        string
	Description string
	ModelName   string
	Config      *genai.GenerateContentConfig
	Tools       Toolbox
	chat        *genai.Chat
}

// Start opens the underlying chat. The chat keeps the whole conversation,
// so an expert remembers the questions it was already asked this session.
func (e *Expert) Start(ctx context.Context, client *genai.Client) error {
	chat, err := client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return fmt.Errorf("could not open the %s chat: %w", e.Name, err)
	}
	e.chat = chat
	return nil
}

// Ask sends the parts and resolves any tool calls the model makes, feeding
// each response back until the model produces plain content.
func (e *Expert) Ask(ctx context.Context, parts ...*genai.Part) (*genai.Content, error) {
	for {
		resp, err := e.chat.Send(ctx, parts...)
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, fmt.Errorf("the %s expert returned an empty answer", e.Name)
		}
		content := resp.Candidates[0].Content
		call := content.Parts[0].FunctionCall
		if call == nil {
			return content, nil
		}
		if e.Tools == nil {
			return nil, fmt.Errorf("the %s expert has no tools yet asked for %q", e.Name, call.Name)
		}
		// Tool errors travel inside the response so the model can react.
		parts = []*genai.Part{{FunctionResponse: e.Tools(ctx, call)}}
	}
}

// Declaration exposes the expert itself as a tool taking one question.
func (e *Expert) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        e.Name,
		Description: e.Description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {
					Type:        genai.TypeString,
					Description: "The question to ask the expert.",
				},
			},
			Required: []string{"question"},
		},
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "The expert's answer.",
		},
	}
}

// Call answers a question addressed to this expert by another chat.
func (e *Expert) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	question, ok := args["question"].(string)
	if !ok {
		return failure(id, e.Name, fmt.Errorf("'question' should be a string, got %T", args["question"]))
	}
	answer, err := e.Ask(ctx, &genai.Part{Text: question})
	if err != nil {
		return failure(id, e.Name, err)
	}
	text := answer.Parts[0].Text
	log.Printf("%s was asked %q\n%s", e.Name, question, text)
	return success(id, e.Name, text)
}
