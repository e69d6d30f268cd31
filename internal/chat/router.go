// Package chat routes an incoming message to exactly one answering
// pipeline: SQL analytics, one of the retrieval modes, or plain chat.
package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/llm"
	"multimodal-rag/internal/memory"
	"multimodal-rag/internal/nl2sql"
	"multimodal-rag/internal/tabular"
)

// Request is one chat turn. Mode flags are checked in a fixed priority
// order (SQL, video, audio, pdf, image); the first set flag wins and the
// rest are ignored. No flags means plain conversation.
type Request struct {
	Message   string `json:"message"`
	UseVideo  bool   `json:"use_video"`
	UseAudio  bool   `json:"use_audio"`
	UsePDF    bool   `json:"use_pdf"`
	UseImage  bool   `json:"use_image"`
	UseSQL    bool   `json:"use_sql"`
	SessionID string `json:"session_id"`
}

// Response mirrors the wire shape: exactly one of Reply or Err is set.
// SQL fields are populated only by SQL mode.
type Response struct {
	Reply    string           `json:"reply,omitempty"`
	Source   string           `json:"source,omitempty"`
	SQL      string           `json:"sql,omitempty"`
	RowCount int              `json:"row_count,omitempty"`
	Rows     []map[string]any `json:"rows,omitempty"`
	Err      string           `json:"error,omitempty"`
}

// ragMode describes one retrieval-augmented answering mode. The table
// below is the single place a mode's collection, prompt wording and
// backend preference live.
type ragMode struct {
	selected     func(*Request) bool
	label        string
	collection   string
	contextLabel string
	systemInstr  string
	notFound     string
	order        []string
}

var ragModes = []ragMode{
	{
		selected:     func(r *Request) bool { return r.UseVideo },
		label:        "Video",
		collection:   chunkstore.CollectionVideo,
		contextLabel: "Video Transcript Context",
		systemInstr:  "Answer the question ONLY based on the video transcript provided. If not found, say question is not related to the video.",
		notFound:     "Question is not in this video (no matching transcript context).",
		order:        []string{"groq", "ollama"},
	},
	{
		selected:     func(r *Request) bool { return r.UseAudio },
		label:        "Audio",
		collection:   chunkstore.CollectionAudio,
		contextLabel: "Audio Transcript Context",
		systemInstr:  "Answer the question ONLY based on the audio transcript provided. If not found, say question is not related to the audio.",
		notFound:     "Question is not in this audio (no matching transcript context).",
		order:        []string{"ollama", "groq"},
	},
	{
		selected:     func(r *Request) bool { return r.UsePDF },
		label:        "PDF",
		collection:   chunkstore.CollectionPDF,
		contextLabel: "PDF Context",
		systemInstr:  "Answer the question ONLY based on the PDF document provided. If not found, say question is not related to the PDF.",
		notFound:     "Question is not in this PDF (no matching document context).",
		order:        []string{"ollama", "groq"},
	},
	{
		selected:     func(r *Request) bool { return r.UseImage },
		label:        "Image",
		collection:   chunkstore.CollectionImage,
		contextLabel: "Image Context",
		systemInstr:  "Answer the question based on the image description and extracted text provided below. Be helpful and informative.",
		notFound:     "No image has been uploaded yet, or the question cannot be matched with the uploaded image content. Please upload an image first.",
		order:        []string{"ollama", "groq"},
	},
}

// Router owns the per-request decision and the conversation memory.
type Router struct {
	chunks     *chunkstore.Store
	tab        *tabular.Store
	sqlgen     *nl2sql.Generator
	memory     *memory.Store
	backends   map[string]llm.Backend
	groqModel  string
	retrievalK int
}

func NewRouter(chunks *chunkstore.Store, tab *tabular.Store, sqlgen *nl2sql.Generator, mem *memory.Store, backends map[string]llm.Backend, groqModel string, retrievalK int) *Router {
	return &Router{
		chunks:     chunks,
		tab:        tab,
		sqlgen:     sqlgen,
		memory:     mem,
		backends:   backends,
		groqModel:  groqModel,
		retrievalK: retrievalK,
	}
}

// Handle answers one chat turn. Pipeline errors come back inside the
// Response rather than as a Go error; the error return is reserved for
// broken wiring.
func (rt *Router) Handle(ctx context.Context, req *Request) *Response {
	if req.UseSQL {
		return rt.handleSQL(ctx, req)
	}
	for i := range ragModes {
		if ragModes[i].selected(req) {
			return rt.handleRAG(ctx, req, &ragModes[i])
		}
	}
	return rt.handleNormal(ctx, req)
}

func (rt *Router) handleRAG(ctx context.Context, req *Request, mode *ragMode) *Response {
	docContext, err := rt.chunks.Retrieve(ctx, req.Message, mode.collection, rt.retrievalK)
	if err != nil {
		return &Response{Err: fmt.Sprintf("%s query failed: %v", mode.label, err), Source: mode.label + " Context"}
	}
	if docContext == "" {
		return &Response{Reply: mode.notFound, Source: mode.label + " Context"}
	}

	userMsg := fmt.Sprintf("%s:\n%s\n\nQuestion: %s", mode.contextLabel, docContext, req.Message)
	messages := rt.memory.BuildPrompt(req.SessionID, userMsg, mode.systemInstr)

	reply, name, err := rt.chain(mode.order).Ask(ctx, messages)
	if err != nil {
		return &Response{Err: fmt.Sprintf("%s query failed: %v", mode.label, err), Source: mode.label + " Context"}
	}

	reply = rt.decorate(reply, name, mode.label)
	rt.memory.Remember(req.SessionID, req.Message, reply)
	return &Response{Reply: reply, Source: rt.sourceLabel(name, mode.label, mode.order)}
}

func (rt *Router) handleNormal(ctx context.Context, req *Request) *Response {
	messages := rt.memory.BuildPrompt(req.SessionID, req.Message,
		"Use the following recent conversation for context and coherence.")

	reply, name, err := rt.chain([]string{"ollama", "groq"}).Ask(ctx, messages)
	if err != nil {
		return &Response{Err: fmt.Sprintf("All chat backends failed: %v", err)}
	}

	reply = rt.decorate(reply, name, "")
	rt.memory.Remember(req.SessionID, req.Message, reply)
	return &Response{Reply: reply, Source: rt.sourceLabel(name, "", []string{"ollama", "groq"})}
}

func (rt *Router) handleSQL(ctx context.Context, req *Request) *Response {
	schema := rt.tab.Schema(ctx)
	if tabular.SchemaMissing(schema) {
		return &Response{
			Reply:  "No SQL database available. Please upload a CSV file first.",
			Source: "SQL Context",
		}
	}

	log.Info().Str("message", req.Message).Msg("sql query request")

	rawSQL, err := rt.sqlgen.Generate(ctx, req.Message, schema, rt.memory.Context(req.SessionID))
	if err != nil {
		return &Response{Err: fmt.Sprintf("SQL query failed: %v", err), Source: "SQL Error"}
	}

	fixedSQL, err := tabular.Repair(rawSQL)
	if err != nil {
		return &Response{Err: fmt.Sprintf("SQL query failed: %v", err), Source: "SQL Error"}
	}
	safeSQL, err := tabular.EnforceSafety(fixedSQL)
	if err != nil {
		return &Response{Err: fmt.Sprintf("SQL query failed: %v", err), Source: "SQL Error"}
	}
	log.Debug().Str("sql", safeSQL).Msg("executing generated sql")

	columns, rows, err := rt.tab.Execute(ctx, safeSQL)
	if err != nil {
		return &Response{Err: fmt.Sprintf("SQL query failed: %v", err), Source: "SQL Error"}
	}

	table := tabular.FormatMarkdownTable(columns, rows)
	reply := fmt.Sprintf("**SQL Query:**\n```sql\n%s\n```\n\n**Results:** (%d rows)\n\n%s",
		safeSQL, len(rows), table)
	rt.memory.Remember(req.SessionID, req.Message, reply)

	preview := rows
	if len(preview) > 10 {
		preview = preview[:10]
	}
	return &Response{
		Reply:    reply,
		Source:   "SQL Query",
		SQL:      safeSQL,
		RowCount: len(rows),
		Rows:     preview,
	}
}

// chain assembles a fallback chain from backend names; unconfigured names
// are skipped.
func (rt *Router) chain(order []string) llm.Chain {
	backends := make([]llm.Backend, 0, len(order))
	for _, name := range order {
		if b, ok := rt.backends[name]; ok && b != nil {
			backends = append(backends, b)
		}
	}
	return llm.NewChain(backends...)
}

// decorate tags replies that came from the secondary hosted service so
// the user can tell which model answered.
func (rt *Router) decorate(reply, backend, modeLabel string) string {
	if backend != "groq" {
		return reply
	}
	if modeLabel == "" {
		return fmt.Sprintf("GROQ answer (%s): %s", rt.groqModel, reply)
	}
	return fmt.Sprintf("GROQ answer (%s) [%s Mode]: \n%s", rt.groqModel, modeLabel, reply)
}

func (rt *Router) sourceLabel(backend, modeLabel string, order []string) string {
	display := backend
	switch backend {
	case "groq":
		display = "Groq"
	case "ollama":
		display = "Ollama"
	case "gemini":
		display = "Gemini"
	}

	fallback := len(order) > 0 && order[0] != backend
	switch {
	case modeLabel == "" && fallback:
		return display + " (Fallback)"
	case modeLabel == "":
		return display
	case fallback:
		return fmt.Sprintf("%s (%s Fallback)", display, modeLabel)
	default:
		return fmt.Sprintf("%s (%s)", display, modeLabel)
	}
}
