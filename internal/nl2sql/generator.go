package nl2sql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/llm"
)

const (
	contextMessages = 4
	contextMaxChars = 200
)

const systemPromptTemplate = `You are an expert SQLite SQL generator who understands conversation context.

Database schema:
%s
%s
Rules:
- Use existing tables only
- SELECT queries only
- SQLite syntax
- No explanation or markdown
- Output ONLY the SQL query
- Use context from previous queries if the user is asking follow-up questions

User request:
%s
`

// Generator turns natural-language questions into raw SQL via an ordered
// backend chain: the primary is tried first, the secondary only on its
// failure.
type Generator struct {
	chain llm.Chain
}

func New(primary, secondary llm.Backend) *Generator {
	return &Generator{chain: llm.NewChain(primary, secondary)}
}

// Generate builds the instruction from the schema and recent conversation
// context and asks the chain. The returned SQL still needs repair and
// safety checks before execution.
func (g *Generator) Generate(ctx context.Context, prompt, schema string, conversation []llm.Message) (string, error) {
	instruction := fmt.Sprintf(systemPromptTemplate, schema, contextSummary(conversation), prompt)

	raw, backend, err := g.chain.Ask(ctx, []llm.Message{{Role: llm.RoleUser, Content: instruction}})
	if err != nil {
		return "", fmt.Errorf("SQL generation failed: %w", err)
	}
	log.Debug().Str("backend", backend).Str("sql", raw).Msg("generated sql")
	return stripFences(raw), nil
}

// contextSummary renders the last few user/assistant turns, truncated, so
// follow-up questions resolve against prior queries.
func contextSummary(conversation []llm.Message) string {
	var recent []llm.Message
	for _, m := range conversation {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			recent = append(recent, m)
		}
	}
	if len(recent) == 0 {
		return ""
	}
	if len(recent) > contextMessages {
		recent = recent[len(recent)-contextMessages:]
	}

	var b strings.Builder
	b.WriteString("\nRecent conversation context:\n")
	for _, m := range recent {
		content := m.Content
		if len(content) > contextMaxChars {
			content = content[:contextMaxChars]
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(m.Role), content)
	}
	return b.String()
}

var (
	fenceOpenRe  = regexp.MustCompile("(?m)^```sql\\s*")
	fenceBareRe  = regexp.MustCompile("(?m)^```\\s*")
	fenceCloseRe = regexp.MustCompile("```$")
)

func stripFences(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = fenceOpenRe.ReplaceAllString(sql, "")
	sql = fenceBareRe.ReplaceAllString(sql, "")
	sql = fenceCloseRe.ReplaceAllString(sql, "")
	return strings.TrimSpace(sql)
}
