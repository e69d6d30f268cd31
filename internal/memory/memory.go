package memory

import (
	"sync"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/llm"
)

// DefaultSession is the key used when a request carries no session
// identifier, giving the single shared history the service started with.
const DefaultSession = "global"

// Capacity is the maximum number of stored entries per session: the last
// five user/assistant exchanges.
const Capacity = 10

// Store keeps a bounded conversation window per session key. All access is
// serialized; eviction happens atomically with the append.
type Store struct {
	mu       sync.Mutex
	sessions map[string][]llm.Message
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]llm.Message)}
}

func normalizeKey(key string) string {
	if key == "" {
		return DefaultSession
	}
	return key
}

// Remember appends a user/assistant exchange. It is best-effort: problems
// are logged, never surfaced to the caller.
func (s *Store) Remember(key, userText, assistantText string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("conversation memory append dropped")
		}
	}()

	key = normalizeKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	window := append(s.sessions[key],
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleAssistant, Content: assistantText},
	)
	if len(window) > Capacity {
		window = window[len(window)-Capacity:]
	}
	s.sessions[key] = window
}

// Context returns up to the last Capacity entries in insertion order.
func (s *Store) Context(key string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.sessions[normalizeKey(key)]
	out := make([]llm.Message, len(window))
	copy(out, window)
	return out
}

// BuildPrompt assembles [system?] + context window + new user message.
func (s *Store) BuildPrompt(key, userMessage, systemPrompt string) []llm.Message {
	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, s.Context(key)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages
}
