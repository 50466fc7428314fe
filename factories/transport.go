package factories

import (
	"errors"
	"fmt"

	"livevoice/core"
	"livevoice/transport"
	"livevoice/transports/gemini"
	"livevoice/transports/websocket"
)

// BuildTransport constructs the configured transport provider. Exactly one
// provider must be selected.
func BuildTransport(cfg TransportFactoryConfig, logger *core.Logger) (transport.Provider, error) {
	selected := 0
	if cfg.Gemini != nil {
		selected++
	}
	if cfg.WebSocket != nil {
		selected++
	}
	if selected == 0 {
		return nil, errors.New("transport factory: no provider configured")
	}
	if selected > 1 {
		return nil, errors.New("transport factory: more than one provider configured")
	}

	switch {
	case cfg.Gemini != nil:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("transport factory: gemini provider requires api_key")
		}
		logger.Debug("transport provider: gemini live", "model", cfg.Gemini.Model)
		return gemini.NewProvider(cfg.Gemini.APIKey, cfg.Gemini.Model), nil

	case cfg.WebSocket != nil:
		if cfg.WebSocket.URL == "" {
			return nil, fmt.Errorf("transport factory: websocket provider requires url")
		}
		p := websocket.NewProvider(cfg.WebSocket.URL)
		if cfg.WebSocket.AuthToken != "" {
			p.Header = map[string]string{"Authorization": "Bearer " + cfg.WebSocket.AuthToken}
		}
		logger.Debug("transport provider: websocket relay", "url", cfg.WebSocket.URL)
		return p, nil
	}
	return nil, errors.New("transport factory: unreachable")
}
