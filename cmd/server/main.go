package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"multimodal-rag/internal/api"
	"multimodal-rag/internal/chat"
	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/config"
	"multimodal-rag/internal/embedding"
	"multimodal-rag/internal/ingest"
	"multimodal-rag/internal/llm"
	"multimodal-rag/internal/memory"
	"multimodal-rag/internal/nl2sql"
	"multimodal-rag/internal/tabular"
	"multimodal-rag/internal/transcribe"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	// Embeddings with an on-disk cache in front of the Ollama model.
	cache, err := embedding.NewCache(cfg.Storage.CacheDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening embedding cache")
	}
	embedder, err := embedding.NewOllamaEmbedder(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating embedder")
	}

	chunks, err := chunkstore.New(cfg.Storage.ChromaDir, embedding.Func(embedder, cache), cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}

	tab, err := tabular.Open(cfg.Storage.SQLitePath, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening sql store")
	}
	defer tab.Close()

	backends := map[string]llm.Backend{}

	groq, err := llm.NewGroq(cfg.Groq, llms.WithTemperature(0.2), llms.WithMaxTokens(600))
	if err != nil {
		log.Warn().Err(err).Msg("Groq backend unavailable")
	} else {
		backends["groq"] = groq
	}

	ollamaBackend, err := llm.NewOllama(cfg.Ollama)
	if err != nil {
		log.Warn().Err(err).Msg("Ollama backend unavailable")
	} else {
		backends["ollama"] = ollamaBackend
	}

	// Gemini analyzes uploaded images; Groq vision renders scanned PDFs.
	var imageVision llm.Vision
	if gemini, err := llm.NewGemini(ctx, cfg.Gemini); err != nil {
		log.Warn().Err(err).Msg("Gemini unavailable, image analysis degraded")
	} else {
		imageVision = gemini
	}

	var ocrVision llm.Vision
	if v, err := llm.NewGroqVision(cfg.Groq); err != nil {
		log.Warn().Err(err).Msg("Groq vision unavailable, scanned PDFs keep plain extraction")
	} else {
		ocrVision = v
	}

	var transcriber ingest.Transcriber
	if cfg.Groq.Key != "" {
		transcriber = transcribe.NewGroqTranscriber(cfg.Groq.BaseURL, cfg.Groq.Key, cfg.Groq.WhisperModel)
	} else {
		log.Warn().Msg("No Groq key, audio and video transcription unavailable")
	}

	ingestSvc := ingest.NewService(chunks, transcriber, imageVision, ocrVision, int64(cfg.Storage.MaxPDFSizeMB)*1024*1024)

	sqlGen := nl2sql.New(backends["ollama"], backends["groq"])
	chatRouter := chat.NewRouter(chunks, tab, sqlGen, memory.NewStore(), backends, cfg.Groq.Model, cfg.RAG.RetrievalK)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(api.NewServer(ingestSvc, tab, chatRouter)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // transcription and OCR uploads are slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	if err := cache.Save(); err != nil {
		log.Error().Err(err).Msg("Could not persist embedding cache")
	}
	log.Info().Msg("Server stopped")
}
