package factories

import (
	"encoding/json"
	"fmt"

	"livevoice/core"
	"livevoice/session"
)

// GeminiConfig configures the Gemini Live provider.
type GeminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model,omitempty"`
}

// WebSocketConfig configures the JSON-envelope relay provider.
type WebSocketConfig struct {
	URL       string `json:"url"`
	AuthToken string `json:"auth_token,omitempty"`
}

// TransportFactoryConfig selects and configures the transport provider.
// Set exactly one provider field.
type TransportFactoryConfig struct {
	Gemini    *GeminiConfig    `json:"gemini,omitempty"`
	WebSocket *WebSocketConfig `json:"websocket,omitempty"`
}

// SettingsConfig is the top-level configuration for a conversation client.
type SettingsConfig struct {
	// Voice selects the synthesis voice identity.
	Voice string `json:"voice"`
	// SystemPrompt is the system behavior text sent on connect.
	SystemPrompt string `json:"system_prompt"`
	// InputSampleRate is the capture rate in Hz.
	InputSampleRate int `json:"input_sample_rate"`
	// OutputSampleRate is the playback rate in Hz.
	OutputSampleRate int `json:"output_sample_rate"`
	// ChunkSize is the capture chunk length in samples.
	ChunkSize int `json:"chunk_size"`
	// Telephony switches outbound frames to G.711 µ-law at 8 kHz.
	Telephony bool `json:"telephony,omitempty"`
	// LogDir enables per-conversation jsonl logs when non-empty.
	LogDir string `json:"log_dir,omitempty"`
	// LogEndpoint streams conversation logs to a remote collector when
	// non-empty, e.g. wss://host/v1/logs.
	LogEndpoint string `json:"log_endpoint,omitempty"`
	// Transport selects the provider.
	Transport TransportFactoryConfig `json:"transport"`
}

// DefaultSettingsConfig returns a SettingsConfig with the standard pipeline
// rates. Populate Transport before calling BuildManager.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Voice:            "Aoede",
		SystemPrompt:     "You are a helpful voice assistant. Keep replies short and conversational.",
		InputSampleRate:  core.CaptureSampleRate,
		OutputSampleRate: core.PlaybackSampleRate,
		ChunkSize:        core.CaptureChunkSize,
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, starting
// from DefaultSettingsConfig so that any fields absent from the JSON retain
// their defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("settings: parse json: %w", err)
	}
	return cfg, nil
}

// SessionConfig maps the settings onto the per-conversation config.
func (c SettingsConfig) SessionConfig() session.Config {
	return session.Config{
		Voice:            c.Voice,
		SystemPrompt:     c.SystemPrompt,
		InputSampleRate:  c.InputSampleRate,
		OutputSampleRate: c.OutputSampleRate,
		ChunkSize:        c.ChunkSize,
		Telephony:        c.Telephony,
		LogDir:           c.LogDir,
		LogEndpoint:      c.LogEndpoint,
	}
}
