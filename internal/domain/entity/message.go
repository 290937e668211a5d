package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ImageAttachment carries an inline image for multimodal chat requests.
type ImageAttachment struct {
	Data []byte
	MIME string
}

type Message struct {
	Role       MessageRole
	Content    string
	Images     []ImageAttachment
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
