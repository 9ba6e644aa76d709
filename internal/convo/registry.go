package convo

import (
	"context"
	"sync"

	"github.com/chimein/chime/pkg/models"
)

// Registry owns the map from conversation key to controller. Controllers are
// created lazily on first message for a key and live as long as the
// registry; nothing removes them.
//
// The registry is an owned structure rather than ambient global state, so it
// can be constructed and discarded per process or per test.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	completer Completer
	channel   Channel
	identity  Identity
	opts      Options
}

// NewRegistry creates an empty registry. New controllers inherit the given
// provider, channel, identity and options.
func NewRegistry(completer Completer, channel Channel, identity Identity, opts Options) *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		completer:   completer,
		channel:     channel,
		identity:    identity,
		opts:        opts,
	}
}

// Resolve returns the controller for key, creating it on first use.
func (r *Registry) Resolve(key string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[key]; ok {
		return c
	}
	c := NewController(key, r.completer, r.channel, r.identity, r.opts)
	r.controllers[key] = c
	return c
}

// HandleMessage routes an inbound message to its conversation's controller.
// The conversation key is the guild id.
func (r *Registry) HandleMessage(ctx context.Context, in models.Inbound) error {
	return r.Resolve(in.GuildID).HandleMessage(ctx, in)
}

// Len reports how many conversations have controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
