// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/errors"
)

// clearProviderEnv isolates tests from keys exported in the developer's shell.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for name := range providerEnv {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama3-groq-70b-8192-tool-use-preview", cfg.LLM.Model)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.LLM.TeamModel)
	assert.Equal(t, DefaultDBURL, cfg.DBURL)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "pdf_assistant", cfg.Storage.RunsTable)
	assert.Equal(t, "recipes", cfg.Knowledge.Collection)
	assert.Equal(t, []string{ThaiRecipesURL}, cfg.Knowledge.PDFURLs)
	assert.Equal(t, 500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.Media.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Media.PollTimeout)
	assert.Equal(t, "localhost:7777", cfg.Server.Addr)
	assert.Empty(t, cfg.Providers.Groq)
}

func TestLoadPrecedence(t *testing.T) {
	clearProviderEnv(t)
	configPath := writeFile(t, "config.yaml", `
llm:
  provider: openai
  model: gpt-4o
log:
  level: debug
knowledge:
  chunk_size: 300
mcp:
  servers:
    fs:
      transport: stdio
      command: mcp-fs
      args: ["--root", "/tmp"]
`)
	envPath := writeFile(t, ".env", `
GROQ_API_KEY=from-dotenv
AGENTDECK_LLM_MODEL=from-dotenv-model
AGENTDECK_KNOWLEDGE_CHUNK_SIZE=200
`)
	t.Setenv("AGENTDECK_LLM_MODEL", "from-env-model")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadWithOptions(LoadOptions{
		ConfigPath: configPath,
		EnvFile:    envPath,
		Defaults:   map[string]any{"llm.provider": "gemini", "server.addr": ":8501"},
		Overrides:  []string{"log.level=warn"},
	})
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider, "file beats binary defaults")
	assert.Equal(t, ":8501", cfg.Server.Addr, "binary defaults beat built-ins")
	assert.Equal(t, "from-env-model", cfg.LLM.Model, "process env beats .env")
	assert.Equal(t, 200, cfg.Knowledge.ChunkSize, ".env beats file")
	assert.Equal(t, "from-dotenv", cfg.Providers.Groq)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI)
	assert.Equal(t, "warn", cfg.Log.Level, "overrides win")

	fs, ok := cfg.MCP.Servers["fs"]
	require.True(t, ok)
	assert.Equal(t, "mcp-fs", fs.Command)
	assert.Equal(t, []string{"--root", "/tmp"}, fs.Args)
}

func TestLoadProviderKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("PHI_API_KEY", "phi-key")
	t.Setenv("ANTHROPIC_API_KEY", "claude-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.Providers.Google)
	assert.Equal(t, "phi-key", cfg.Platform.APIKey)
	assert.Equal(t, "claude-key", cfg.APIKey("anthropic"))
	assert.Equal(t, "google-key", cfg.APIKey("gemini"))
	assert.Empty(t, cfg.APIKey("ollama"))

	cfg.LLM.APIKey = "explicit"
	assert.Equal(t, "explicit", cfg.APIKey(cfg.LLM.Provider))
}

func TestLoadUnknownEnvIgnored(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AGENTDECK_NOT_A_KEY", "x")
	_, err := Load("")
	require.NoError(t, err)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearProviderEnv(t)
	_, err := LoadWithOptions(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	clearProviderEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = LoadWithOptions(LoadOptions{Overrides: []string{"novalue"}})
	require.Error(t, err)
}

func TestParseOverride(t *testing.T) {
	key, value, err := parseOverride(`mcp.servers={"web":{"transport":"http","url":"http://localhost:8080"}}`)
	require.NoError(t, err)
	assert.Equal(t, "mcp.servers", key)
	assert.IsType(t, map[string]any{}, value)

	key, value, err = parseOverride("llm.model = gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "llm.model", key)
	assert.Equal(t, "gpt-4o-mini", value)

	_, _, err = parseOverride("=x")
	assert.Error(t, err)
}

func TestBindFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-config", "c.yaml",
		"-env-file", "custom.env",
		"-set", "log.level=debug",
		"-set", "llm.model=x",
	}))
	opts := f.Options(map[string]any{"llm.provider": "gemini"})
	assert.Equal(t, "c.yaml", opts.ConfigPath)
	assert.Equal(t, "custom.env", opts.EnvFile)
	assert.Equal(t, []string{"log.level=debug", "llm.model=x"}, opts.Overrides)
	assert.Equal(t, "gemini", opts.Defaults["llm.provider"])
}

func TestValidate(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no API key for provider "groq"`)

	cfg.Providers.Groq = "gsk"
	require.NoError(t, cfg.Validate())

	cfg.MCP.Servers = map[string]MCPServerConfig{
		"a": {Transport: "http"},
		"b": {Transport: "carrier-pigeon"},
	}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `mcp server "a": url is required`)
	assert.Contains(t, err.Error(), `unknown transport "carrier-pigeon"`)

	cfg.MCP.Servers = nil
	cfg.LLM.Provider = "ollama"
	require.NoError(t, cfg.Validate())
	cfg.LLM.Provider = "mystery"
	assert.Error(t, cfg.Validate())
}
