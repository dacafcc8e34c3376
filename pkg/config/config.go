// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the settings shared by every agentdeck binary.
//
// Sources are applied in order, later ones winning: built-in defaults,
// per-binary defaults, an optional YAML file, an optional .env file,
// AGENTDECK_* environment variables, the well-known provider keys
// (GROQ_API_KEY, GOOGLE_API_KEY, ...) and finally -set overrides.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/agentdeck/pkg/errors"
)

// EnvPrefix prefixes environment overrides: AGENTDECK_LLM_MODEL -> llm.model.
const EnvPrefix = "AGENTDECK_"

// DefaultDBURL is the PostgreSQL instance used by the PDF assistants.
const DefaultDBURL = "postgres://ai:ai@localhost:5532/ai"

// ThaiRecipesURL is the sample document loaded by the PDF assistant CLI.
const ThaiRecipesURL = "https://phi-public.s3.amazonaws.com/recipes/ThaiRecipes.pdf"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	LLM       LLMConfig       `koanf:"llm"`
	Providers ProviderKeys    `koanf:"providers"`
	Platform  PlatformConfig  `koanf:"platform"`
	DBURL     string          `koanf:"db_url"`
	Storage   StorageConfig   `koanf:"storage"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
	Media     MediaConfig     `koanf:"media"`
	Server    ServerConfig    `koanf:"server"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
	ServiceName  string `koanf:"service_name"`
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // groq, openai, gemini, anthropic, ollama
	Model    string `koanf:"model"`
	// TeamModel is used by coordinating team agents.
	TeamModel string `koanf:"team_model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    string `koanf:"api_key"`
}

// ProviderKeys holds the API keys read from the provider's own variables.
type ProviderKeys struct {
	Groq      string `koanf:"groq_api_key"`
	OpenAI    string `koanf:"openai_api_key"`
	Google    string `koanf:"google_api_key"`
	Anthropic string `koanf:"anthropic_api_key"`
}

// PlatformConfig carries the hosted agent platform key (PHI_API_KEY).
type PlatformConfig struct {
	APIKey string `koanf:"api_key"`
}

type StorageConfig struct {
	Backend   string `koanf:"backend"` // postgres, sqlite, redis, memory
	RedisAddr string `koanf:"redis_addr"`
	RunsTable string `koanf:"runs_table"`
	// HistoryTable stores conversation messages for the sql backends.
	HistoryTable string `koanf:"history_table"`
}

type KnowledgeConfig struct {
	Collection      string   `koanf:"collection"`
	PDFURLs         []string `koanf:"pdf_urls"`
	VectorStore     string   `koanf:"vector_store"` // pgvector, qdrant, memory
	QdrantAddr      string   `koanf:"qdrant_addr"`
	Embedder        string   `koanf:"embedder"` // openai, gemini, ollama
	EmbedderModel   string   `koanf:"embedder_model"`
	EmbedderBaseURL string   `koanf:"embedder_base_url"`
	// Tokenizer is a tiktoken encoding name, or "estimate" for len/4.
	Tokenizer       string   `koanf:"tokenizer"`
	ChunkSize       int      `koanf:"chunk_size"`
	ChunkOverlap    int      `koanf:"chunk_overlap"`
	NumDocuments    int      `koanf:"num_documents"`
	ScoreThreshold  float32  `koanf:"score_threshold"`
	Recreate        bool     `koanf:"recreate"`
}

type MediaConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	PollTimeout  time.Duration `koanf:"poll_timeout"`
	MaxPolls     int           `koanf:"max_polls"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
	// MaxUploadMB bounds multipart uploads in the web UIs.
	MaxUploadMB int64 `koanf:"max_upload_mb"`
}

type MCPConfig struct {
	// Expose serves the agents' tools on /mcp in the playground.
	Expose  bool                       `koanf:"expose"`
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

type MCPServerConfig struct {
	Transport string            `koanf:"transport"` // stdio, http
	Command   string            `koanf:"command"`
	Args      []string          `koanf:"args"`
	Env       map[string]string `koanf:"env"`
	URL       string            `koanf:"url"`
	Agent     string            `koanf:"agent"` // agent receiving the tools; empty means all
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
	// Defaults are per-binary values applied over the built-in defaults.
	Defaults map[string]any
	// Overrides are key=value pairs applied last. Values that parse as JSON
	// are stored decoded.
	Overrides []string
}

func builtinDefaults() map[string]any {
	return map[string]any{
		"log.level":                   "info",
		"log.format":                  "text",
		"telemetry.exporter":          "none",
		"telemetry.otlp_endpoint":     "localhost:4317",
		"telemetry.otlp_insecure":     true,
		"telemetry.service_name":      "agentdeck",
		"llm.provider":                "groq",
		"llm.model":                   "llama3-groq-70b-8192-tool-use-preview",
		"llm.team_model":              "llama-3.1-70b-versatile",
		"llm.base_url":                "",
		"llm.api_key":                 "",
		"providers.groq_api_key":      "",
		"providers.openai_api_key":    "",
		"providers.google_api_key":    "",
		"providers.anthropic_api_key": "",
		"platform.api_key":            "",
		"db_url":                      DefaultDBURL,
		"storage.backend":             "postgres",
		"storage.redis_addr":          "localhost:6379",
		"storage.runs_table":          "pdf_assistant",
		"storage.history_table":       "pdf_assistant_messages",
		"knowledge.collection":        "recipes",
		"knowledge.pdf_urls":          []string{ThaiRecipesURL},
		"knowledge.vector_store":      "pgvector",
		"knowledge.qdrant_addr":       "localhost:6334",
		"knowledge.embedder":          "openai",
		"knowledge.embedder_model":    "",
		"knowledge.embedder_base_url": "http://localhost:11434",
		"knowledge.tokenizer":         "cl100k_base",
		"knowledge.chunk_size":        500,
		"knowledge.chunk_overlap":     0,
		"knowledge.num_documents":     5,
		"knowledge.score_threshold":   0,
		"knowledge.recreate":          false,
		"media.poll_interval":         "5s",
		"media.poll_timeout":          "10m",
		"media.max_polls":             0,
		"server.addr":                 "localhost:7777",
		"server.max_upload_mb":        200,
		"mcp.expose":                  true,
	}
}

// providerEnv maps the providers' own variables to config keys.
var providerEnv = map[string]string{
	"GROQ_API_KEY":      "providers.groq_api_key",
	"OPENAI_API_KEY":    "providers.openai_api_key",
	"GEMINI_API_KEY":    "providers.google_api_key",
	"GOOGLE_API_KEY":    "providers.google_api_key",
	"ANTHROPIC_API_KEY": "providers.anthropic_api_key",
	"PHI_API_KEY":       "platform.api_key",
}

// providerEnvOrder applies GOOGLE_API_KEY after GEMINI_API_KEY so it wins.
var providerEnvOrder = []string{
	"GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "PHI_API_KEY",
}

// Load reads configuration from a YAML file and the environment.
func Load(path string) (*Config, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: path})
}

// LoadWithOptions reads configuration from every source in opts.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, value := range builtinDefaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}
	for key, value := range opts.Defaults {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	// 1. YAML file
	if opts.ConfigPath != "" {
		if err := k.Load(file.Provider(opts.ConfigPath), yaml.Parser()); err != nil {
			return nil, configError("read config file", opts.ConfigPath, err)
		}
	}

	// 2. .env file, mapped like the process environment
	if opts.EnvFile != "" {
		if err := loadDotenv(k, opts.EnvFile); err != nil {
			return nil, err
		}
	}

	// 3. AGENTDECK_* then provider keys from the process environment
	if err := applyEnv(k); err != nil {
		return nil, err
	}

	// 4. -set overrides
	for _, kv := range opts.Overrides {
		key, value, err := parseOverride(kv)
		if err != nil {
			return nil, err
		}
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, configError("decode config", "", err)
	}
	return &cfg, nil
}

// loadDotenv reads a .env file. A missing file is not an error.
func loadDotenv(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	dk := koanf.New(".")
	if err := dk.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return configError("read env file", path, err)
	}
	known := knownKeys(k)
	for _, name := range dk.Keys() {
		value := dk.String(name)
		if strings.HasPrefix(name, EnvPrefix) {
			if key, ok := known[envKey(name)]; ok {
				if err := k.Set(key, value); err != nil {
					return err
				}
			}
		}
	}
	return applyProviderKeys(k, func(name string) string { return dk.String(name) })
}

// applyEnv loads AGENTDECK_* variables, then the provider keys, from the
// process environment.
func applyEnv(k *koanf.Koanf) error {
	known := knownKeys(k)
	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, any) {
		key, ok := known[envKey(name)]
		if !ok {
			return "", nil
		}
		return key, value
	}), nil)
	if err != nil {
		return configError("read environment", "", err)
	}
	return applyProviderKeys(k, os.Getenv)
}

func applyProviderKeys(k *koanf.Koanf, lookup func(string) string) error {
	for _, name := range providerEnvOrder {
		if value := strings.TrimSpace(lookup(name)); value != "" {
			if err := k.Set(providerEnv[name], value); err != nil {
				return err
			}
		}
	}
	return nil
}

func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
}

// knownKeys indexes every loaded key by its environment spelling:
// "knowledge.chunk_size" is reachable as AGENTDECK_KNOWLEDGE_CHUNK_SIZE.
func knownKeys(k *koanf.Koanf) map[string]string {
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	return known
}

func parseOverride(kv string) (string, any, error) {
	key, raw, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid override %q, want key=value", kv), nil)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return key, decoded, nil
		}
	}
	return key, raw, nil
}

func configError(msg, path string, err error) error {
	e := errors.New(errors.CodeInvalidInput, msg, err)
	if path != "" {
		e = e.WithContext("path", path)
	}
	return e
}

// Flags are the command-line options every binary accepts.
type Flags struct {
	ConfigPath string
	EnvFile    string
	Overrides  overrideList
}

type overrideList []string

func (o *overrideList) String() string { return strings.Join(*o, ",") }

func (o *overrideList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// BindFlags registers -config, -env-file and -set on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "path to a .env file with API keys")
	fs.Var(&f.Overrides, "set", "override a config key, key=value (repeatable)")
	return f
}

// Options converts parsed flags to LoadOptions with the given per-binary defaults.
func (f *Flags) Options(defaults map[string]any) LoadOptions {
	return LoadOptions{
		ConfigPath: f.ConfigPath,
		EnvFile:    f.EnvFile,
		Defaults:   defaults,
		Overrides:  append([]string(nil), f.Overrides...),
	}
}

// APIKey returns the key for the configured provider: llm.api_key when set,
// otherwise the provider's own variable.
func (c *Config) APIKey(provider string) string {
	if provider == c.LLM.Provider && c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	switch provider {
	case "groq":
		return c.Providers.Groq
	case "openai":
		return c.Providers.OpenAI
	case "gemini", "google":
		return c.Providers.Google
	case "anthropic":
		return c.Providers.Anthropic
	}
	return ""
}

// Validate checks the settings that would otherwise fail on first use.
func (c *Config) Validate() error {
	var problems []string
	switch c.LLM.Provider {
	case "groq", "openai", "gemini", "anthropic":
		if c.APIKey(c.LLM.Provider) == "" {
			problems = append(problems, fmt.Sprintf("no API key for provider %q", c.LLM.Provider))
		}
	case "ollama":
	default:
		problems = append(problems, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.Media.PollInterval <= 0 {
		problems = append(problems, "media.poll_interval must be > 0")
	}
	for name, s := range c.MCP.Servers {
		switch s.Transport {
		case "stdio", "":
			if s.Command == "" {
				problems = append(problems, fmt.Sprintf("mcp server %q: command is required", name))
			}
		case "http":
			if s.URL == "" {
				problems = append(problems, fmt.Sprintf("mcp server %q: url is required", name))
			}
		default:
			problems = append(problems, fmt.Sprintf("mcp server %q: unknown transport %q", name, s.Transport))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New(errors.CodeInvalidInput, "invalid configuration: "+strings.Join(problems, "; "), nil)
}
