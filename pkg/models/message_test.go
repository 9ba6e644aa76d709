package models

import "testing"

func TestChatMessage_Text(t *testing.T) {
	msg := ChatMessage{
		Role: RoleUser,
		Parts: []ContentPart{
			TextPart("hello "),
			ImagePart("https://cdn.example/cat.png"),
			TextPart("world"),
		},
	}
	if got := msg.Text(); got != "hello world" {
		t.Errorf("Text = %q, want text fragments only", got)
	}
}

func TestChatMessage_TextEmpty(t *testing.T) {
	msg := ChatMessage{Role: RoleAssistant}
	if got := msg.Text(); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}

func TestPartConstructors(t *testing.T) {
	text := TextPart("hi")
	if text.Type != PartTypeText || text.Text != "hi" || text.ImageURL != "" {
		t.Errorf("TextPart = %+v", text)
	}
	img := ImagePart("https://cdn.example/a.png")
	if img.Type != PartTypeImageURL || img.ImageURL != "https://cdn.example/a.png" || img.Text != "" {
		t.Errorf("ImagePart = %+v", img)
	}
}
