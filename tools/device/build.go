package device

import (
	"errors"
	"fmt"
	"io"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/spf13/afero"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Set holds the speech capabilities built for this host. Output or Input is
// nil when the host cannot provide it.
type Set struct {
	Output  assist.SpeechOutput
	Input   assist.SpeechInput
	closers []io.Closer
}

func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Build wires speech output and input from cfg. A capability that is
// disabled, or lacks an API key, is left out and logged; only broken
// configuration is an error.
func Build(logger shared.LoggerAdapter, cfg *shared.Config) (*Set, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg == nil {
		return nil, shared.ErrNoConfig
	}
	set := &Set{}
	if err := set.buildOutput(logger, cfg); err != nil {
		_ = set.Close()
		return nil, err
	}
	if err := set.buildInput(logger, cfg); err != nil {
		_ = set.Close()
		return nil, err
	}
	return set, nil
}

func (s *Set) buildOutput(logger shared.LoggerAdapter, cfg *shared.Config) error {
	if !cfg.Speech.Enabled {
		logger.Info("speech output disabled")
		return nil
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("speech output needs an API key, falling back to announcements")
		return nil
	}
	timeout := shared.Millis(cfg.Speech.TimeoutMs)
	synth, err := speech.NewHTTPSynthesizer(logger, speech.SynthesizerConfigFrom(cfg), &fasthttp.Client{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}
	player, err := NewOtoPlayer(logger, cfg.Speech.SampleRate, 1, cfg.Speech.PlayerBufferMs)
	if err != nil {
		logger.Error("opening audio output, falling back to announcements", err)
		return nil
	}
	voice, err := speech.NewVoice(logger, synth, player)
	if err != nil {
		return err
	}
	s.Output = voice
	return nil
}

func (s *Set) buildInput(logger shared.LoggerAdapter, cfg *shared.Config) error {
	if !cfg.Listen.Enabled || cfg.Listen.Device == shared.MicDeviceNone {
		logger.Info("speech input disabled")
		return nil
	}
	stt, err := s.transcriber(logger, cfg)
	if err != nil || stt == nil {
		return err
	}
	mic, err := s.microphone(logger, cfg)
	if err != nil {
		logger.Error("opening microphone, voice commands unavailable", err)
		return nil
	}
	ear, err := speech.NewEar(logger, mic, stt)
	if err != nil {
		return err
	}
	s.Input = ear
	return nil
}

func (s *Set) transcriber(logger shared.LoggerAdapter, cfg *shared.Config) (speech.Transcriber, error) {
	switch cfg.Listen.Engine {
	case shared.STTEngineWhisper:
		w, err := NewWhisperTranscriber(logger, cfg.Listen.WhisperModelPath, cfg.Listen.Language)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, w)
		return w, nil
	case shared.STTEngineOpenAI:
		if cfg.OpenAI.APIKey == "" {
			logger.Warn("transcription needs an API key, voice commands unavailable")
			return nil, nil
		}
		return speech.NewOpenAITranscriber(logger, speech.TranscriberConfigFrom(cfg))
	}
	return nil, fmt.Errorf("unknown speech recognition engine %q", cfg.Listen.Engine)
}

func (s *Set) microphone(logger shared.LoggerAdapter, cfg *shared.Config) (speech.Microphone, error) {
	seg := tools.SegmentConfigFrom(cfg.Listen)
	switch cfg.Listen.Device {
	case shared.MicDevicePortAudio:
		m, err := NewPortAudioMicrophone(logger, seg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, m)
		return m, nil
	case shared.MicDeviceMediaDevices:
		return NewMediaDevicesMicrophone(logger, seg)
	case shared.MicDeviceFile:
		logger.Info("replaying commands from file", zap.String("path", cfg.Listen.InputFile))
		return speech.NewFileMicrophone(afero.NewOsFs(), cfg.Listen.InputFile, true), nil
	}
	return nil, fmt.Errorf("unknown microphone device %q", cfg.Listen.Device)
}
