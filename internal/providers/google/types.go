package google

import "encoding/json"

type wirePart struct {
	Text             string              `json:"text,omitempty"`
	InlineData       *wireInlineData      `json:"inline_data,omitempty"`
	FunctionCall     *wireFunctionCall    `json:"functionCall,omitempty"`
	FunctionResponse *wireFunctionResult  `json:"functionResponse,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wireFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type wireFunctionResult struct {
	Name     string                 `json:"name"`
	Response map[string]any         `json:"response"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wireSystemInstruction struct {
	Parts []wirePart `json:"parts"`
}

type wireFunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireTool struct {
	FunctionDeclarations []wireFunctionDeclaration `json:"function_declarations"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type chatRequest struct {
	Contents          []wireContent          `json:"contents"`
	SystemInstruction *wireSystemInstruction `json:"system_instruction,omitempty"`
	Tools             []wireTool             `json:"tools,omitempty"`
	GenerationConfig  *generationConfig      `json:"generationConfig,omitempty"`
}

type streamChunk struct {
	Candidates    []streamCandidate `json:"candidates"`
	UsageMetadata *usageMetadata    `json:"usage_metadata,omitempty"`
}

type streamCandidate struct {
	Content streamContent `json:"content"`
}

type streamContent struct {
	Parts []wirePart `json:"parts"`
}

type usageMetadata struct {
	PromptTokenCount     *int `json:"prompt_token_count,omitempty"`
	CandidatesTokenCount *int `json:"candidates_token_count,omitempty"`
	TotalTokenCount      *int `json:"total_token_count,omitempty"`
}
