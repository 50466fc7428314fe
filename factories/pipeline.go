package factories

import (
	"fmt"

	"livevoice/capture"
	"livevoice/core"
	"livevoice/playback"
	"livevoice/session"
)

// BuildManager constructs the full conversation pipeline from settings:
// microphone device, capture pipeline, speaker sink, playback scheduler,
// transport provider, and the session manager over them. The returned
// cleanup releases the audio devices and must run after the manager is
// closed.
func BuildManager(settings SettingsConfig, logger *core.Logger) (*session.Manager, func(), error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	provider, err := BuildTransport(settings.Transport, logger)
	if err != nil {
		return nil, nil, err
	}

	mic, err := capture.NewMicrophone(settings.InputSampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("build manager: %w", err)
	}

	sink, err := playback.NewSpeakerSink(settings.OutputSampleRate)
	if err != nil {
		mic.Close()
		return nil, nil, fmt.Errorf("build manager: %w", err)
	}

	pipeline := capture.NewPipeline(mic, settings.InputSampleRate, settings.ChunkSize)
	scheduler := playback.NewScheduler(sink)
	manager := session.NewManager(provider, pipeline, scheduler, settings.SessionConfig(), logger)

	cleanup := func() {
		sink.Close()
		mic.Close()
	}
	return manager, cleanup, nil
}
