package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"livevoice/core"
	"livevoice/factories"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "", "path to a settings JSON file")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Debug("No .env.local file found or failed to load")
	}

	logger := core.GetLogger()
	settings := loadSettings(settingsPath)

	manager, cleanup, err := factories.BuildManager(settings, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", "error", err)
	}
	defer cleanup()
	defer manager.Close()

	manager.SetEventHandler(func(ev core.IEvent) {
		switch e := ev.(type) {
		case *core.SessionStateEvent:
			logger.Info("session state", "state", e.State)
		case *core.CriticalErrorEvent:
			logger.Error("session error", "error", e.Error)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartConversation(ctx); err != nil {
		logger.Fatal("failed to start conversation", "error", err)
	}
	logger.Info("conversation running, press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	manager.StopConversation()
}

// loadSettings resolves configuration in precedence order: explicit file,
// SETTINGS_JSON_B64, then discrete env vars over defaults.
func loadSettings(settingsPath string) factories.SettingsConfig {
	logger := core.GetLogger()

	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			logger.Fatal("failed to read settings file", "error", err)
		}
		settings, err := factories.SettingsConfigFromJSON(data)
		if err != nil {
			logger.Fatal("failed to parse settings file", "error", err)
		}
		return applyEnvTransport(settings)
	}

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			logger.Fatal("failed to decode SETTINGS_JSON_B64", "error", err)
		}
		settings, err := factories.SettingsConfigFromJSON(data)
		if err != nil {
			logger.Fatal("failed to parse SETTINGS_JSON_B64", "error", err)
		}
		return applyEnvTransport(settings)
	}

	settings := factories.DefaultSettingsConfig()
	if v := os.Getenv("LIVEVOICE_VOICE"); v != "" {
		settings.Voice = v
	}
	if v := os.Getenv("LIVEVOICE_SYSTEM_PROMPT"); v != "" {
		settings.SystemPrompt = v
	}
	if v := os.Getenv("LIVEVOICE_LOG_DIR"); v != "" {
		settings.LogDir = v
	}
	if v := os.Getenv("LIVEVOICE_LOG_ENDPOINT"); v != "" {
		settings.LogEndpoint = v
	}
	return applyEnvTransport(settings)
}

// applyEnvTransport fills in the transport provider from env vars when the
// settings did not already select one.
func applyEnvTransport(settings factories.SettingsConfig) factories.SettingsConfig {
	if settings.Transport.Gemini != nil || settings.Transport.WebSocket != nil {
		return settings
	}
	if url := os.Getenv("LIVEVOICE_RELAY_URL"); url != "" {
		settings.Transport.WebSocket = &factories.WebSocketConfig{
			URL:       url,
			AuthToken: os.Getenv("LIVEVOICE_RELAY_TOKEN"),
		}
		return settings
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		settings.Transport.Gemini = &factories.GeminiConfig{
			APIKey: key,
			Model:  os.Getenv("LIVEVOICE_MODEL"),
		}
	}
	return settings
}
