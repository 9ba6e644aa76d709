// Package convo implements the per-conversation controller: rolling message
// memory, the reply-decision policy, response generation, and the typing
// heartbeat around the generation call.
package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chimein/chime/internal/llm"
	"github.com/chimein/chime/internal/memory"
	"github.com/chimein/chime/internal/typing"
	"github.com/chimein/chime/pkg/models"
)

// NoReplyConclusion is the conclusion the model produces when it decides not
// to answer after all. It is distinct from a provider-level refusal and is
// never delivered to the channel.
const NoReplyConclusion = "refuse"

// Defaults applied by Options.withDefaults.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 500
)

// Decision is the response shape of the reply policy classifier.
type Decision struct {
	ShouldReply bool `json:"shouldReply"`
}

// Step is one entry of the model's reasoning trace.
type Step struct {
	Content string `json:"content"`
}

// Reasoning is the structured response shape of the generator: an ordered
// reasoning trace plus a final conclusion.
type Reasoning struct {
	Steps      []Step `json:"steps"`
	Conclusion string `json:"conclusion"`
}

// Reply is the outcome of one generation call.
type Reply struct {
	Refusal   bool
	Reasoning Reasoning
}

// Deliverable reports whether the conclusion should be sent to the channel:
// not refused, non-empty, and not the no-reply sentinel.
func (r *Reply) Deliverable() bool {
	return !r.Refusal && r.Reasoning.Conclusion != "" && r.Reasoning.Conclusion != NoReplyConclusion
}

var (
	decisionFormat  = llm.FormatFor("shouldReply", &Decision{})
	reasoningFormat = llm.FormatFor("reasoning", &Reasoning{})
)

// Completer is the completion provider contract consumed by the controller.
// *llm.Client implements it.
type Completer interface {
	Parse(ctx context.Context, req llm.ParseRequest) (*llm.ParseResult, error)
}

// Channel is the messaging platform surface the controller talks to.
type Channel interface {
	// Typing shows a typing indicator on the channel. Best-effort.
	Typing(channelID string) error

	// Reply sends content as a reply referencing the given message.
	Reply(channelID, messageID, content string) error

	// ReferencedAuthor resolves the author display name of a message.
	ReferencedAuthor(ctx context.Context, channelID, messageID string) (string, error)
}

// Options configure a Controller.
type Options struct {
	// Model and MaxTokens shape every provider request.
	Model     string
	MaxTokens int

	// MaxMessages bounds the conversation memory.
	MaxMessages int

	// TypingInterval is the heartbeat refresh delay during generation.
	TypingInterval time.Duration

	// Serialize runs each inbound message's decide+generate pipeline to
	// completion before the next one starts for the same conversation key.
	// When false, overlapping pipelines interleave their memory appends in
	// completion order.
	Serialize bool

	// ReplyPrompt and ShouldReplyPrompt override the identity-derived
	// default prompts when non-empty.
	ReplyPrompt       string
	ShouldReplyPrompt string

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Controller owns one conversation: its memory, its reply policy, and the
// orchestration of generation and delivery for each inbound message.
type Controller struct {
	key       string
	completer Completer
	channel   Channel
	identity  Identity
	memory    *memory.Memory
	opts      Options
	logger    *slog.Logger

	// mu serializes pipelines for this key when opts.Serialize is set.
	mu sync.Mutex
}

// NewController creates a controller for one conversation key.
func NewController(key string, completer Completer, channel Channel, identity Identity, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		key:       key,
		completer: completer,
		channel:   channel,
		identity:  identity,
		memory:    memory.New(opts.MaxMessages),
		opts:      opts,
		logger:    opts.Logger.With("component", "convo", "conversation", key),
	}
}

// Memory exposes the conversation history.
func (c *Controller) Memory() *memory.Memory {
	return c.memory
}

// HandleMessage runs the pipeline for one inbound message: normalize, append
// to memory, decide, and, when the policy says to engage, generate and
// deliver a reply under a typing heartbeat.
//
// Every message enters memory, including ones the agent ignores. Provider
// transport faults surface as errors; refusals and unparseable results
// produce no outbound traffic and no error.
func (c *Controller) HandleMessage(ctx context.Context, in models.Inbound) error {
	if c.opts.Serialize {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	log := c.logger.With("request_id", uuid.NewString())
	log.Info("message received", "author", in.AuthorName, "author_id", in.AuthorID)

	pending := c.normalize(ctx, in)
	c.memory.Append(pending)

	engage, err := c.shouldReply(ctx, pending)
	if err != nil {
		return fmt.Errorf("reply decision: %w", err)
	}
	if !engage {
		log.Debug("staying silent")
		return nil
	}

	reply, err := c.generateWithTyping(ctx, in.ChannelID, log)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	if !reply.Deliverable() {
		log.Info("reply withheld", "refusal", reply.Refusal)
		return nil
	}

	log.Info("reply generated", "steps", len(reply.Reasoning.Steps))
	if err := c.channel.Reply(in.ChannelID, in.MessageID, reply.Reasoning.Conclusion); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// shouldReply asks the policy classifier whether the agent should engage
// with the pending message. The request carries the memory snapshot (which
// already contains the pending message) followed by the pending message
// itself. Any ambiguous outcome fails closed to false.
func (c *Controller) shouldReply(ctx context.Context, pending models.ChatMessage) (bool, error) {
	res, err := c.completer.Parse(ctx, llm.ParseRequest{
		Model:     c.opts.Model,
		System:    c.shouldReplyPrompt(),
		Messages:  append(c.memory.Snapshot(), pending),
		MaxTokens: c.opts.MaxTokens,
		Format:    decisionFormat,
	})
	if err != nil {
		return false, err
	}
	if res.Refusal || len(res.Value) == 0 {
		return false, nil
	}
	var d Decision
	if err := json.Unmarshal(res.Value, &d); err != nil {
		return false, nil
	}
	return d.ShouldReply, nil
}

// generateWithTyping runs the generation call with the typing heartbeat
// active. The heartbeat stops on every exit path.
func (c *Controller) generateWithTyping(ctx context.Context, channelID string, log *slog.Logger) (*Reply, error) {
	ind := typing.NewIndicator(func() error {
		return c.channel.Typing(channelID)
	}, c.opts.TypingInterval, log)
	ind.Start()
	defer ind.Stop()

	return c.generate(ctx)
}

// generate requests a structured reasoned reply over the current memory
// snapshot. A non-refused, non-empty conclusion is appended to memory as an
// assistant turn; everything else leaves memory untouched.
func (c *Controller) generate(ctx context.Context) (*Reply, error) {
	res, err := c.completer.Parse(ctx, llm.ParseRequest{
		Model:     c.opts.Model,
		System:    c.replyPrompt(),
		Messages:  c.memory.Snapshot(),
		MaxTokens: c.opts.MaxTokens,
		Format:    reasoningFormat,
	})
	if err != nil {
		return nil, err
	}

	reply := &Reply{Refusal: res.Refusal}
	if len(res.Value) > 0 {
		if err := json.Unmarshal(res.Value, &reply.Reasoning); err != nil {
			return reply, nil
		}
	}

	if !reply.Refusal && reply.Reasoning.Conclusion != "" {
		c.memory.Append(models.ChatMessage{
			Role:  models.RoleAssistant,
			Parts: []models.ContentPart{models.TextPart(reply.Reasoning.Conclusion)},
		})
	}
	return reply, nil
}

func (c *Controller) shouldReplyPrompt() string {
	if c.opts.ShouldReplyPrompt != "" {
		return c.opts.ShouldReplyPrompt
	}
	name, id := c.identity()
	return DefaultShouldReplyPrompt(name, id)
}

func (c *Controller) replyPrompt() string {
	if c.opts.ReplyPrompt != "" {
		return c.opts.ReplyPrompt
	}
	name, id := c.identity()
	return DefaultReplyPrompt(name, id)
}
