package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"omnix.dev/omnix-bot/internal/utils"
)

const (
	// MinAudioBytes is the smallest body accepted as real audio; error pages
	// and empty clips come back smaller.
	MinAudioBytes = 500
	// MaxSpeechRunes bounds the cleaned text before it is cut to three sentences.
	MaxSpeechRunes = 200

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ErrNoAudio means every variant failed; callers send text only.
var ErrNoAudio = errors.New("no audio produced")

// Variant is one parameter set tried against the synthesis endpoint.
type Variant struct {
	Name   string
	Params map[string]string
}

// DefaultVariants mirrors the endpoint flavours that the public translate
// TTS endpoint answers to, slowest voice first.
var DefaultVariants = []Variant{
	{Name: "tw-ob", Params: map[string]string{"client": "tw-ob", "ttsspeed": "0.8"}},
	{Name: "gtx-slow", Params: map[string]string{"client": "gtx", "slow": "true"}},
	{Name: "tk", Params: map[string]string{"tk": "1"}},
}

type Config struct {
	Endpoint string
	Language string
	Timeout  time.Duration
	Variants []Variant
}

type Synthesizer struct {
	client   *resty.Client
	endpoint string
	language string
	variants []Variant
}

func NewSynthesizer(cfg Config) *Synthesizer {
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = DefaultVariants
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", browserUserAgent)

	return &Synthesizer{
		client:   client,
		endpoint: cfg.Endpoint,
		language: cfg.Language,
		variants: cfg.Variants,
	}
}

// Synthesize converts answer text into MP3 bytes. Each variant is tried once,
// in order; the first response larger than MinAudioBytes wins.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	clean := utils.CleanForSpeech(text, MaxSpeechRunes)
	if clean == "" {
		return nil, fmt.Errorf("empty text after cleanup: %w", ErrNoAudio)
	}

	log.Debug().Str("text", utils.Truncate(clean, 100)).Msg("Generating speech")

	for i, variant := range s.variants {
		audio, err := s.try(ctx, clean, variant)
		if err != nil {
			log.Warn().Err(err).Str("variant", variant.Name).Msgf("TTS endpoint %d/%d failed", i+1, len(s.variants))
			continue
		}
		log.Info().Str("variant", variant.Name).Int("bytes", len(audio)).Msg("TTS succeeded")
		return audio, nil
	}

	return nil, fmt.Errorf("all %d tts variants failed: %w", len(s.variants), ErrNoAudio)
}

func (s *Synthesizer) try(ctx context.Context, text string, variant Variant) ([]byte, error) {
	params := map[string]string{
		"ie": "UTF-8",
		"q":  text,
		"tl": s.language,
	}
	for k, v := range variant.Params {
		params[k] = v
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("tts returned status %d", resp.StatusCode())
	}
	if len(resp.Body()) <= MinAudioBytes {
		return nil, fmt.Errorf("tts payload too small (%d bytes)", len(resp.Body()))
	}
	return resp.Body(), nil
}
