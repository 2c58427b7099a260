// Command intervox runs the voice mock-interview pipeline server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/log"
	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/hub"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/llm"
	"github.com/intervox-ai/intervox/pkg/pipeline"
	"github.com/intervox-ai/intervox/pkg/ratelimit"
	"github.com/intervox-ai/intervox/pkg/stt"
	"github.com/intervox-ai/intervox/pkg/tts"
	"github.com/intervox-ai/intervox/pkg/web"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger level is not configured yet; plain stderr is fine here.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	sttProvider, err := stt.NewWhisper(
		stt.WithAPIKey(cfg.OpenAIKey),
		stt.WithModel(cfg.TranscribeModel),
		stt.WithLogger(logger),
	)
	if err != nil {
		log.Error("failed to create transcription provider", "error", err)
		os.Exit(1)
	}
	defer sttProvider.Close()

	llmOpts := []llm.Option{
		llm.WithAPIKey(cfg.OpenAIKey),
		llm.WithModel(cfg.ChatModel),
		llm.WithLogger(logger),
	}
	if cfg.OpenAIBaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llmClient, err := llm.NewOpenAI(llmOpts...)
	if err != nil {
		log.Error("failed to create chat client", "error", err)
		os.Exit(1)
	}
	defer llmClient.Close()

	ttsProvider, ttsNamed, err := buildTTS(cfg, logger)
	if err != nil {
		log.Error("failed to create speech provider", "error", err)
		os.Exit(1)
	}
	defer ttsProvider.Close()

	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)

	orch, err := pipeline.New(pipeline.Config{
		STT:      sttProvider,
		LLM:      llmClient,
		TTS:      ttsProvider,
		TTSNamed: ttsNamed,
		Limiter:  limiter,
		Checker:  audio.NewChecker(cfg.AudioCheck),
		Logger:   logger,
	})
	if err != nil {
		log.Error("failed to create orchestrator", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(web.Config{
		Port:         cfg.Port,
		Orchestrator: orch,
		Transcript:   interview.NewTranscript(),
		Events:       hub.New(logger),
		Logger:       logger,
	})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		log.Info("shutting down", "signal", s.String())
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("starting intervox",
		"port", cfg.Port,
		"audio_check", cfg.AudioCheck,
		"rate_limit_max", cfg.RateLimitMax,
		"elevenlabs", cfg.HasElevenLabs(),
	)

	if err := server.Start(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildTTS assembles the synthesis chain: OpenAI first, ElevenLabs as the
// fallback when its credentials are configured. The named map backs
// per-request provider selection.
func buildTTS(cfg *config.Config, logger *slog.Logger) (tts.Provider, map[string]tts.Provider, error) {
	primary, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.OpenAIKey),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	named := map[string]tts.Provider{"openai": primary}

	if !cfg.HasElevenLabs() {
		return primary, named, nil
	}

	fallback, err := tts.NewElevenLabs(
		tts.WithAPIKey(cfg.ElevenLabsKey),
		tts.WithVoice(cfg.ElevenLabsVoice),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	named["elevenlabs"] = fallback

	chain, err := tts.NewChainWithLogger(logger, primary, fallback)
	if err != nil {
		return nil, nil, err
	}
	return chain, named, nil
}
