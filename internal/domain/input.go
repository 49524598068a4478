package domain

// UserInput is a single chat turn forwarded to Opey. It is built fresh
// from every request body and never persisted.
type UserInput struct {
	Message            string  `json:"message"`
	ThreadID           *string `json:"thread_id,omitempty"`
	IsToolCallApproval bool    `json:"is_tool_call_approval"`
}

// StreamInput is the invoke payload for Opey's streaming endpoint.
// StreamTokens is always forced true by the gateway.
type StreamInput struct {
	UserInput
	StreamTokens bool `json:"stream_tokens"`
}
