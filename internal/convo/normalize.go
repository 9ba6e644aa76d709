package convo

import (
	"context"
	"fmt"
	"strings"

	"github.com/chimein/chime/pkg/models"
)

// replyToNone marks a reply reference that is absent or could not be
// resolved.
const replyToNone = "none"

// imageContentType is the content-type category accepted as an image
// fragment. Matching is by prefix, so "image/png" and "image/svg+xml" both
// qualify; attachments without a content type do not.
const imageContentType = "image"

// normalize converts an inbound platform message into a role-tagged chat
// message: one text fragment embedding author name, id and the reply-to
// author, followed by one image fragment per image attachment. Non-image
// attachments are dropped.
//
// Resolving the reply reference is a network call; failure degrades to the
// "none" sentinel rather than failing normalization.
func (c *Controller) normalize(ctx context.Context, in models.Inbound) models.ChatMessage {
	role := models.RoleUser
	if _, selfID := c.identity(); selfID != "" && in.AuthorID == selfID {
		role = models.RoleAssistant
	}

	replyTo := replyToNone
	if in.ReferenceID != "" {
		name, err := c.channel.ReferencedAuthor(ctx, in.ChannelID, in.ReferenceID)
		if err != nil {
			c.logger.Debug("reply reference lookup failed",
				"message_id", in.ReferenceID, "error", err)
		} else if name != "" {
			replyTo = name
		}
	}

	parts := []models.ContentPart{
		models.TextPart(fmt.Sprintf("[User: %s, ID: %s, ReplyTo: %s] %s",
			in.AuthorName, in.AuthorID, replyTo, in.Content)),
	}
	for _, att := range in.Attachments {
		if strings.HasPrefix(att.ContentType, imageContentType) {
			parts = append(parts, models.ImagePart(att.URL))
		}
	}

	return models.ChatMessage{Role: role, Parts: parts}
}
