package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/teslashibe/go-emo/internal/config"
	"github.com/teslashibe/go-emo/pkg/assistant"
	"github.com/teslashibe/go-emo/pkg/audio"
	"github.com/teslashibe/go-emo/pkg/audioio"
	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/feedback"
	"github.com/teslashibe/go-emo/pkg/inference"
	"github.com/teslashibe/go-emo/pkg/metrics"
	"github.com/teslashibe/go-emo/pkg/robot"
	"github.com/teslashibe/go-emo/pkg/session"
	"github.com/teslashibe/go-emo/pkg/transcribe"
	"github.com/teslashibe/go-emo/pkg/tts"
	"github.com/teslashibe/go-emo/pkg/web"
)

// app holds the wired components.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	hardware *robot.Hardware
	device   audioio.Device
	speech   *audio.Player
	voice    tts.Provider
	chat     inference.Provider

	player   *emotions.Player
	feedback *feedback.Orchestrator
	spawner  *feedback.Spawner
	loop     *session.Loop
	web      *web.Server
}

// newApp acquires the peripherals and wires every component. Peripheral
// failures are returned wrapped; the caller treats them as fatal.
func newApp(cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Peripherals
	a.hardware, err = robot.Open(robot.Config{
		Driver:       cfg.Hardware.Driver,
		I2CBus:       cfg.Hardware.I2CBus,
		PWMFrequency: cfg.Hardware.PWMFrequency,
		Range:        emotions.PulseRange{Min: cfg.Hardware.ServoMin, Max: cfg.Hardware.ServoMax},
		SPIPort:      cfg.Hardware.SPIPort,
		SPISpeedHz:   cfg.Hardware.SPISpeedHz,
		DCPin:        cfg.Hardware.DCPin,
		ResetPin:     cfg.Hardware.ResetPin,
		Width:        cfg.Hardware.DisplayWidth,
		Height:       cfg.Hardware.DisplayHeight,
	}, logger)
	if err != nil {
		return nil, err
	}

	captureCfg := audioio.DefaultConfig()
	captureCfg.Backend = audioio.Backend(cfg.Audio.Backend)
	captureCfg.SampleRate = cfg.Audio.SampleRate
	captureCfg.ChunkFrames = cfg.Audio.ChunkFrames
	a.device, err = audioio.NewDevice(captureCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("capture device: %w", err)
	}
	sampler := audioio.NewSampler(a.device, captureCfg, logger)
	if err := sampler.Probe(); err != nil {
		return nil, fmt.Errorf("capture device: %w", err)
	}

	out, err := newOutput(cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("voice output: %w", err)
	}
	a.speech = audio.NewPlayer(out, logger)

	// Remote services
	openaiTTS, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.Assistant.APIKey),
		tts.WithBaseURL(cfg.Assistant.BaseURL),
		tts.WithVoice(cfg.Voice.Voice),
		tts.WithModel(cfg.Voice.Model),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	clips := tts.NewClips(filepath.Join(cfg.Assets.Dir, "phrases"), map[string]string{
		cfg.Voice.ProcessingPhrase: "processing.mp3",
		cfg.Voice.QuietPhrase:      "quiet.mp3",
	})
	chain, err := tts.NewChain(logger, openaiTTS, clips)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	a.voice = tts.NewCache(chain, 16)
	voice := tts.NewVoice(a.voice, a.speech, logger)

	chat, err := newChat(cfg.Assistant, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	a.chat = chat

	whisper, err := transcribe.NewWhisper(transcribe.Config{
		APIKey:   cfg.Assistant.APIKey,
		BaseURL:  cfg.Assistant.BaseURL,
		Model:    cfg.Assistant.TranscribeModel,
		Language: cfg.Assistant.Language,
		Timeout:  cfg.Assistant.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}

	// Expressions and feedback
	m := metrics.New()
	frames := robot.NewFrameStore(cfg.Hardware.DisplayWidth, cfg.Hardware.DisplayHeight)
	playerOpts := emotions.DefaultPlayerOptions()
	playerOpts.StepInterval = cfg.Assets.StepInterval
	playerOpts.Range = emotions.PulseRange{Min: cfg.Hardware.ServoMin, Max: cfg.Hardware.ServoMax}
	playerOpts.ShushClip = cfg.Assets.ShushClip
	playerOpts.QuietPhrase = cfg.Voice.QuietPhrase
	playerOpts.Logger = logger
	a.player = emotions.NewPlayer(
		emotions.NewLibrary(cfg.Assets.Dir, frames),
		a.hardware.Display,
		a.hardware.Actuator,
		a.speech,
		voice,
		playerOpts,
	)

	a.spawner = feedback.NewSpawner(logger)
	a.feedback = feedback.New(m.Instrument(a.player), voice, a.spawner, feedback.Options{
		Loops:            cfg.Assets.LoopCount,
		ProcessingPhrase: cfg.Voice.ProcessingPhrase,
		Logger:           logger,
	})

	// Control loop and dashboard
	observers := session.Observers{m}
	loopOpts := session.Options{
		Rules: session.Rules{
			WakeWord:       cfg.Session.WakeWord,
			IdleTimeout:    cfg.Session.IdleTimeout,
			NoiseThreshold: cfg.Session.NoiseThreshold,
		},
		SampleDuration: cfg.Session.SampleDuration,
		CyclePause:     cfg.Session.CyclePause,
		Logger:         logger,
	}
	deps := session.Deps{
		Sampler:     sampler,
		Transcriber: whisper,
		Assistant: assistant.New(chat, assistant.Options{
			SystemPrompt: cfg.Assistant.SystemPrompt,
			Logger:       logger,
		}),
		Feedback: a.feedback,
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(web.Options{
			Addr:    ":" + cfg.Web.Port,
			State:   web.StateFunc(func() session.State { return a.loop.State() }),
			Express: a.feedback,
			Catalog: a.player,
			Metrics: m.Handler(),
			Logger:  logger,
		})
		observers = append(observers, a.web)
	}
	loopOpts.Observer = observers
	a.loop = session.NewLoop(deps, loopOpts)
	return a, nil
}

func newOutput(cfg config.AudioConfig) (audio.Output, error) {
	switch cfg.Output {
	case "rtp":
		return audio.NewRTPOutput(cfg.RTPAddr)
	case "mock":
		return &audio.MockOutput{Realtime: true}, nil
	case "speaker", "":
		return audio.NewSpeakerOutput(audio.DefaultSpeakerRate)
	}
	return nil, fmt.Errorf("unknown output %q", cfg.Output)
}

// newChat builds the chat provider. With a fallback model configured the
// primary and fallback clients are chained.
func newChat(cfg config.AssistantConfig, logger *slog.Logger) (inference.Provider, error) {
	primary, err := inference.NewClient(
		inference.WithAPIKey(cfg.APIKey),
		inference.WithBaseURL(cfg.BaseURL),
		inference.WithModel(cfg.Model),
		inference.WithTimeout(cfg.Timeout),
		inference.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackModel == "" {
		return primary, nil
	}

	baseURL := cfg.FallbackBaseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	fallback, err := inference.NewClient(
		inference.WithAPIKey(cfg.APIKey),
		inference.WithBaseURL(baseURL),
		inference.WithModel(cfg.FallbackModel),
		inference.WithTimeout(cfg.Timeout),
		inference.WithLogger(logger),
	)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return inference.NewChain(logger, primary, fallback)
}

// Run shows the neutral face, then runs the loop and dashboard until ctx is
// done.
func (a *app) Run(ctx context.Context) error {
	a.showNeutral(ctx)

	webErr := make(chan error, 1)
	if a.web != nil {
		go func() { webErr <- a.web.Run(ctx) }()
	}

	loopErr := a.loop.Run(ctx)

	if a.web != nil {
		if err := <-webErr; err != nil {
			a.logger.Warn("dashboard stopped", "error", err)
		}
	}
	return loopErr
}

// showNeutral renders the startup expression with the configured loop count.
func (a *app) showNeutral(ctx context.Context) {
	if err := a.player.Render(ctx, emotions.Neutral, a.cfg.Assets.LoopCount); err != nil {
		a.logger.Warn("initial expression failed", "error", err)
	}
}

// Close waits for background expressions and releases every resource.
func (a *app) Close() error {
	if a.spawner != nil {
		a.spawner.Wait()
	}
	var errs []error
	closeAll := []interface{ Close() error }{}
	if a.chat != nil {
		closeAll = append(closeAll, a.chat)
	}
	if a.voice != nil {
		closeAll = append(closeAll, a.voice)
	}
	if a.speech != nil {
		closeAll = append(closeAll, a.speech)
	}
	if a.device != nil {
		closeAll = append(closeAll, a.device)
	}
	if a.hardware != nil {
		closeAll = append(closeAll, a.hardware)
	}
	for _, c := range closeAll {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
