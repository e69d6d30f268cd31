package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FailureMarker flags a soft failure: a backend that answers with a reply
// containing this substring is treated as failed by the chain, matching
// hosted services that degrade to an error-shaped reply instead of an
// HTTP error.
const FailureMarker = "Fallback Error"

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}

// Backend is the contract for any chat-capable LLM service.
type Backend interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Vision extends a backend with image understanding.
type Vision interface {
	Backend
	AnalyzeImage(ctx context.Context, prompt, mime string, image []byte) (string, error)
}

// Chain tries backends in order and returns the first usable reply.
// A reply containing FailureMarker counts as a failure.
type Chain struct {
	Backends []Backend
}

// NewChain drops nil entries so callers can pass optionally configured
// backends directly.
func NewChain(backends ...Backend) Chain {
	kept := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			kept = append(kept, b)
		}
	}
	return Chain{Backends: kept}
}

// Ask returns the reply, the name of the backend that produced it, and an
// error only when every backend failed.
func (c Chain) Ask(ctx context.Context, messages []Message) (string, string, error) {
	var errs []error
	for _, b := range c.Backends {
		reply, err := b.Chat(ctx, messages)
		if err != nil {
			log.Warn().Err(err).Str("backend", b.Name()).Msg("backend failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if strings.Contains(reply, FailureMarker) {
			log.Warn().Str("backend", b.Name()).Msg("backend returned failure marker, trying next")
			errs = append(errs, fmt.Errorf("%s: %s", b.Name(), reply))
			continue
		}
		return reply, b.Name(), nil
	}
	if len(errs) == 0 {
		return "", "", errors.New("no backends configured")
	}
	return "", "", fmt.Errorf("all backends failed: %w", errors.Join(errs...))
}
