// Package chat provides the chat transcript feature of the web UI.
package chat

// Signals are the datastar signals posted by the chat page.
type Signals struct {
	Question string            `json:"question"`
	Drafts   map[string]string `json:"drafts"`
}

// Session cookie name and keys.
const (
	sessionName     = "leapchat"
	conversationKey = "conversation"
	sidebarKey      = "sidebar_collapsed"
)
