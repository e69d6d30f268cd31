package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	RAG       RAGConfig       `yaml:"rag"`
	Groq      GroqConfig      `yaml:"groq"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StorageConfig struct {
	ChromaDir    string `yaml:"chroma_dir"`
	CacheDir     string `yaml:"cache_dir"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxPDFSizeMB int    `yaml:"max_pdf_size_mb"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	RetrievalK   int `yaml:"retrieval_k"`
}

type GroqConfig struct {
	Key         string `yaml:"key"`
	VisionKey   string `yaml:"vision_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	WhisperModel string `yaml:"whisper_model"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
}

type GeminiConfig struct {
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
}

type EmbeddingConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultRetrievalK   = 5
	defaultMaxPDFSizeMB = 30
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8001"
	}
	if c.Storage.ChromaDir == "" {
		c.Storage.ChromaDir = "./chroma_db"
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = "./cache"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./sql_data.db"
	}
	if c.Storage.MaxPDFSizeMB == 0 {
		c.Storage.MaxPDFSizeMB = defaultMaxPDFSizeMB
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.RetrievalK == 0 {
		c.RAG.RetrievalK = defaultRetrievalK
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Groq.Model == "" {
		c.Groq.Model = "llama-3.1-8b-instant"
	}
	if c.Groq.VisionModel == "" {
		c.Groq.VisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	}
	if c.Groq.WhisperModel == "" {
		c.Groq.WhisperModel = "whisper-large-v3-turbo"
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = "https://ollama.com"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "gpt-oss:120b-cloud"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Embedding.Host == "" {
		c.Embedding.Host = "http://localhost:11434"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
}

// applyEnv lets API keys come from the environment so the yaml file can be
// committed without secrets.
func (c *Config) applyEnv() {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.Groq.Key = v
	}
	if v := os.Getenv("GROQ_VISION_API_KEY"); v != "" {
		c.Groq.VisionKey = v
	}
	if v := os.Getenv("OLLAMA_API_KEY"); v != "" {
		c.Ollama.Key = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Gemini.Key = v
	}
}
