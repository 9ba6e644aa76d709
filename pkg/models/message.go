package models

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType identifies the kind of a content fragment.
type PartType string

const (
	PartTypeText     PartType = "text"
	PartTypeImageURL PartType = "image_url"
)

// ContentPart is one fragment of a chat message: either inline text or a
// reference to an image resource by URL.
type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// TextPart builds a text content fragment.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart builds an image-URL content fragment.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: url}
}

// ChatMessage is a role-tagged message in provider-ready form. It is the unit
// stored in conversation memory and sent as completion context.
type ChatMessage struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// Text returns the concatenated text fragments of the message.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}

// Attachment is a file attached to an inbound platform message.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Inbound is a platform message after transport decoding, before
// normalization into a ChatMessage.
type Inbound struct {
	GuildID     string       `json:"guild_id"`
	ChannelID   string       `json:"channel_id"`
	MessageID   string       `json:"message_id"`
	AuthorID    string       `json:"author_id"`
	AuthorName  string       `json:"author_name"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// ReferenceID is the id of the message this one replies to, if any.
	ReferenceID string `json:"reference_id,omitempty"`
}
