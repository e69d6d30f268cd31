package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodal-rag/internal/llm"
)

func TestRememberEvictsOldestBeyondCapacity(t *testing.T) {
	s := NewStore()
	for i := 0; i < 6; i++ {
		s.Remember("", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	window := s.Context("")
	require.Len(t, window, Capacity)
	// 6 exchanges = 12 entries, the first exchange is gone
	assert.Equal(t, "q1", window[0].Content)
	assert.Equal(t, llm.RoleUser, window[0].Role)
	assert.Equal(t, "a5", window[len(window)-1].Content)
	assert.Equal(t, llm.RoleAssistant, window[len(window)-1].Role)
}

func TestContextPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Remember("", "hello", "hi there")

	window := s.Context("")
	require.Len(t, window, 2)
	assert.Equal(t, llm.RoleUser, window[0].Role)
	assert.Equal(t, llm.RoleAssistant, window[1].Role)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := NewStore()
	s.Remember("alpha", "question a", "answer a")
	s.Remember("beta", "question b", "answer b")

	assert.Len(t, s.Context("alpha"), 2)
	assert.Len(t, s.Context("beta"), 2)
	assert.Equal(t, "question a", s.Context("alpha")[0].Content)
	assert.Equal(t, "question b", s.Context("beta")[0].Content)
}

func TestEmptyKeyMapsToDefaultSession(t *testing.T) {
	s := NewStore()
	s.Remember("", "hello", "hi")
	assert.Equal(t, s.Context(DefaultSession), s.Context(""))
}

func TestBuildPrompt(t *testing.T) {
	s := NewStore()
	s.Remember("", "first", "reply")

	messages := s.BuildPrompt("", "second", "be helpful")
	require.Len(t, messages, 4)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "be helpful", messages[0].Content)
	assert.Equal(t, "second", messages[3].Content)

	// without a system prompt
	messages = s.BuildPrompt("", "second", "")
	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
}

func TestConcurrentAppendsKeepCapInvariant(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Remember("", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Context(""), Capacity)
}
