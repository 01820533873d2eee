package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"omnix.dev/omnix-bot/internal/store"
	"omnix.dev/omnix-bot/internal/utils"
)

const (
	// MaxAnswerRunes keeps answers deliverable on voice-capable channels.
	MaxAnswerRunes = 800
	// PrimaryMinAnswerRunes rejects truncated or refusal-style replies from the primary tier.
	PrimaryMinAnswerRunes = 50

	DefaultDisplayName = "Usuario"
	SourceOffline      = "offline"
	SourceVoice        = "voice"

	defaultProviderTimeout = 8 * time.Second
)

var ErrAnswerTooShort = errors.New("answer shorter than required minimum")

// ConversationLogger receives every resolved question/answer pair.
type ConversationLogger interface {
	SaveConversation(ctx context.Context, c *store.Conversation) error
}

// Tier is one AI provider with its own acceptance threshold.
type Tier struct {
	Provider Provider
	MinRunes int
}

type Question struct {
	Text        string
	UserID      string
	DisplayName string
	ChatType    string
}

type Answer struct {
	Text   string `json:"answer"`
	Source string `json:"source"`
}

type AnswerService struct {
	tiers     []Tier
	responder Responder
	log       ConversationLogger
	timeout   time.Duration
}

// NewAnswerService wires tiers in priority order. logger may be nil.
func NewAnswerService(logger ConversationLogger, timeout time.Duration, tiers ...Tier) *AnswerService {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &AnswerService{
		tiers:   tiers,
		log:     logger,
		timeout: timeout,
	}
}

// Resolve always returns a non-empty answer. Provider failures fall through
// to the next tier and finally to the offline responder; the conversation
// record is written best-effort.
func (s *AnswerService) Resolve(ctx context.Context, q Question) Answer {
	q.DisplayName = displayNameOrDefault(q.DisplayName)
	traceID := uuid.NewString()
	logger := log.With().Str("trace_id", traceID).Str("user_id", q.UserID).Logger()

	answer := Answer{Source: SourceOffline}
	for _, tier := range s.tiers {
		text, err := s.ask(ctx, tier, q)
		if err != nil {
			if errors.Is(err, ErrProviderDisabled) {
				logger.Debug().Str("provider", tier.Provider.Name()).Msg("Provider not configured, skipping")
			} else {
				logger.Warn().Err(err).Str("provider", tier.Provider.Name()).Msg("Provider failed, falling back")
			}
			continue
		}
		answer = Answer{Text: text, Source: tier.Provider.Name()}
		break
	}

	if answer.Text == "" {
		answer.Text = s.responder.Respond(q.Text, q.DisplayName)
	}
	answer.Text = utils.Truncate(answer.Text, MaxAnswerRunes)

	logger.Info().Str("source", answer.Source).Msg("Answer resolved")

	s.record(ctx, q, answer)
	return answer
}

func (s *AnswerService) ask(ctx context.Context, tier Tier, q Question) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := tier.Provider.Ask(ctx, q.Text, q.DisplayName)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	if tier.MinRunes > 0 && utils.RuneLen(text) < tier.MinRunes {
		return "", fmt.Errorf("%d runes: %w", utils.RuneLen(text), ErrAnswerTooShort)
	}
	return text, nil
}

// RecordVoice logs a canned voice-message exchange.
func (s *AnswerService) RecordVoice(ctx context.Context, userID, displayName, answer string) {
	s.record(ctx, Question{
		Text:        "Mensaje de voz",
		UserID:      userID,
		DisplayName: displayNameOrDefault(displayName),
		ChatType:    store.ChatTypeVoice,
	}, Answer{Text: answer, Source: SourceVoice})
}

// VoiceReply is sent for voice notes; speech recognition is not attempted.
func VoiceReply(displayName string) string {
	return fmt.Sprintf("¡Hola %s! Recibí tu mensaje de voz. Como experto crypto, te comento que Bitcoin está en "+
		"$102,000, Ethereum en $2,650 y Solana en $154. El mercado crypto muestra tendencia positiva. "+
		"¿Te interesa análisis específico de alguna crypto o tienes preguntas sobre trading?",
		displayNameOrDefault(displayName))
}

func (s *AnswerService) record(ctx context.Context, q Question, a Answer) {
	if s.log == nil {
		return
	}
	name := q.DisplayName
	c := &store.Conversation{
		UserID:   q.UserID,
		Username: &name,
		Question: q.Text,
		Answer:   a.Text,
		Source:   a.Source,
		ChatType: q.ChatType,
	}
	// The write must outlive a caller that has already given up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.log.SaveConversation(ctx, c); err != nil {
		log.Warn().Err(err).Str("user_id", q.UserID).Msg("Failed to save conversation")
	}
}

func displayNameOrDefault(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return DefaultDisplayName
	}
	return name
}
