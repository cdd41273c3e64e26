package models

// ConnectionState is the lifecycle state of the session's socket.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionError        ConnectionState = "error"
)

// AgentMode is the backend agent's working mode, reported on connect.
type AgentMode string

const (
	AgentModeChat     AgentMode = "chat"
	AgentModeGenerate AgentMode = "generate"
	AgentModeEdit     AgentMode = "edit"
)

// Session identifies the active conversation. Identity is SessionID.
type Session struct {
	SessionID       string          `json:"session_id"`
	ProjectID       string          `json:"project_id,omitempty"`
	Title           string          `json:"title,omitempty"`
	ConnectionState ConnectionState `json:"connection_state"`
	AgentMode       AgentMode       `json:"agent_mode,omitempty"`
}

// Active reports whether the session refers to a started conversation.
func (s Session) Active() bool {
	return s.SessionID != ""
}
