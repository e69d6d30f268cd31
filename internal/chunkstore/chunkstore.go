package chunkstore

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// Collection names, one vector-store partition per modality.
const (
	CollectionVideo = "chat_video_context"
	CollectionAudio = "chat_audio_context"
	CollectionPDF   = "chat_pdf_context"
	CollectionImage = "chat_image_context"
)

// Collections lists every modality partition created at startup.
var Collections = []string{CollectionVideo, CollectionAudio, CollectionPDF, CollectionImage}

// Store wraps the chromem-go vector database. It owns document-level
// dedup-by-source, chunking and similarity retrieval.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	chunkSize   int
	overlap     int
}

// New opens (or creates) a persistent store under dbPath and ensures one
// collection per modality.
func New(dbPath string, embed chromem.EmbeddingFunc, chunkSize, overlap int) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return newStore(db, embed, chunkSize, overlap)
}

// NewInMemory builds an ephemeral store, used in tests.
func NewInMemory(embed chromem.EmbeddingFunc, chunkSize, overlap int) (*Store, error) {
	return newStore(chromem.NewDB(), embed, chunkSize, overlap)
}

func newStore(db *chromem.DB, embed chromem.EmbeddingFunc, chunkSize, overlap int) (*Store, error) {
	s := &Store{
		db:          db,
		collections: make(map[string]*chromem.Collection, len(Collections)),
		chunkSize:   chunkSize,
		overlap:     overlap,
	}
	for _, name := range Collections {
		c, err := db.GetOrCreateCollection(name, nil, embed)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
		s.collections[name] = c
	}
	return s, nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s", name)
	}
	return c, nil
}

// StoreIfNew chunks text and inserts the chunks into the named collection,
// unless any chunk with the same source already exists there. The source
// match is exact; this is the sole deduplication mechanism and it works at
// document level. Returns the number of chunks created and whether the
// document was already present.
func (s *Store) StoreIfNew(ctx context.Context, text, source, collection string) (int, bool, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, false, err
	}

	if source != "" && c.Count() > 0 {
		results, err := c.Query(ctx, source, 1, map[string]string{"source": source}, nil)
		if err != nil {
			// Fail open: a broken duplicate check must not block ingestion.
			log.Warn().Err(err).Str("source", source).Msg("duplicate check failed, storing anyway")
		} else if len(results) > 0 {
			return 0, true, nil
		}
	}

	chunks := Split(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return 0, false, fmt.Errorf("no chunks produced for source %s", source)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:       uuid.NewString(),
			Content:  chunk,
			Metadata: map[string]string{"source": source},
		})
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, false, fmt.Errorf("add documents: %w", err)
	}
	return len(docs), false, nil
}

// Retrieve runs a nearest-neighbor search and concatenates the retrieved
// chunk texts with a blank line. Returns "" when the collection is empty.
// There is no score threshold: any hit counts as found.
func (s *Store) Retrieve(ctx context.Context, query, collection string, k int) (string, error) {
	c, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	count := c.Count()
	if count == 0 {
		return "", nil
	}
	if k > count {
		k = count
	}

	results, err := c.Query(ctx, query, k, nil, nil)
	if err != nil {
		return "", fmt.Errorf("query collection %s: %w", collection, err)
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}
	return strings.Join(texts, "\n\n"), nil
}
