package convo

import "fmt"

// Identity reports the agent's current display name and user id. Prompts are
// derived from it at request time, so a renamed bot never serves stale
// instructions.
type Identity func() (name, id string)

// DefaultShouldReplyPrompt is the classifier instruction deciding whether the
// agent engages with a message at all.
func DefaultShouldReplyPrompt(name, id string) string {
	return fmt.Sprintf(`You are a Discord bot named %s, with the ID %s.
To mention users, use the format <@USER_ID>.

- Think through each task step by step.
- Only respond to messages that mention you using <@%s> or are explicitly directed to you, unless the message is a question.
- If a message is not directed at you or does not mention <@%s>, dont respond.
- If you're unsure of the answer, don't respond.`, name, id, id, id)
}

// DefaultReplyPrompt is the generation instruction used once the agent has
// decided to engage.
func DefaultReplyPrompt(name, id string) string {
	return fmt.Sprintf(`You are a Discord bot named %s, with the ID %s.
To mention users, use the format <@USER_ID>.

- Think through each task step by step.
- Respond with short, clear, and concise replies.
- Do not include your name or ID in any of your responses.`, name, id)
}
