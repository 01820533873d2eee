package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"omnix.dev/omnix-bot/internal/core"
	"omnix.dev/omnix-bot/internal/market"
	"omnix.dev/omnix-bot/internal/speech"
	"omnix.dev/omnix-bot/internal/store"
)

// Sender is the subset of *tgbotapi.BotAPI used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Answerer interface {
	Resolve(ctx context.Context, q core.Question) core.Answer
	RecordVoice(ctx context.Context, userID, displayName, answer string)
}

type PortfolioReader interface {
	Get(ctx context.Context, userID string) *store.Portfolio
}

type PriceOracle interface {
	Price(ctx context.Context, symbol string) market.Quote
	Prices(ctx context.Context) []market.Quote
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Services is built once at startup and shared by all workers.
type Services struct {
	Answers      Answerer
	Portfolios   PortfolioReader
	Prices       PriceOracle
	Speech       Synthesizer // nil disables voice replies
	VoiceReplies bool
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	svc     Services
	workers int
}

// New connects to Telegram with token.
func New(token string, svc Services, workers int) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram")
	b := NewWithSender(api, svc, workers)
	b.api = api
	return b, nil
}

// NewWithSender builds a bot that replies through sender but cannot poll.
func NewWithSender(sender Sender, svc Services, workers int) *Bot {
	if workers < 1 {
		workers = 1
	}
	return &Bot{sender: sender, svc: svc, workers: workers}
}

// Run long-polls Telegram until ctx is cancelled. Updates for a chat always
// go to the same worker, so one conversation is handled strictly in order
// while different chats proceed concurrently.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	queues := make([]chan tgbotapi.Update, b.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range queues {
		queue := make(chan tgbotapi.Update, 16)
		queues[i] = queue
		g.Go(func() error {
			for update := range queue {
				b.HandleUpdate(gctx, update)
			}
			return nil
		})
	}

	log.Info().Int("workers", b.workers).Msg("Handlers registered, polling for updates")

	defer func() {
		b.api.StopReceivingUpdates()
		stopWorkers(queues, g.Wait)
		log.Info().Msg("Telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case queues[workerFor(chatIDOf(update), b.workers)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// stopWorkers closes every queue and waits for the workers to drain them.
func stopWorkers(queues []chan tgbotapi.Update, wait func() error) error {
	for _, q := range queues {
		close(q)
	}
	if err := wait(); err != nil {
		log.Error().Err(err).Msg("Telegram worker stopped with error")
		return err
	}
	return nil
}

func workerFor(chatID int64, n int) int {
	return int(((chatID % int64(n)) + int64(n)) % int64(n))
}

func chatIDOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func userOf(from *tgbotapi.User) (id, name string) {
	if from == nil {
		return "", core.DefaultDisplayName
	}
	name = from.FirstName
	if name == "" {
		name = core.DefaultDisplayName
	}
	return strconv.FormatInt(from.ID, 10), name
}

// HandleUpdate dispatches one inbound event. Failures are logged; nothing
// here stops the polling loop.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, msg)
	default:
		b.reply(msg.Chat.ID, unsupportedText)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, _ := userOf(msg.From)

	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, welcomeText)
	case "menu":
		out := tgbotapi.NewMessage(msg.Chat.ID, "🎛️ MENÚ OMNIX BOT\n\nSelecciona una opción:")
		out.ReplyMarkup = menuKeyboard()
		b.send(out)
	case "price":
		symbol := strings.TrimSpace(msg.CommandArguments())
		if symbol == "" {
			b.reply(msg.Chat.ID, "Uso: /price btc")
			return
		}
		b.reply(msg.Chat.ID, analysisText(b.svc.Prices.Price(ctx, symbol)))
	case "portfolio":
		b.reply(msg.Chat.ID, core.Summary(b.svc.Portfolios.Get(ctx, userID), market.FormatUSD))
	default:
		b.reply(msg.Chat.ID, "Comando no reconocido. Usa /menu para ver las opciones.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Warn().Err(err).Msg("Failed to acknowledge callback")
	}
	userID, _ := userOf(q.From)

	var text string
	switch q.Data {
	case callbackPortfolio:
		text = core.Summary(b.svc.Portfolios.Get(ctx, userID), market.FormatUSD)
	case callbackBitcoin, callbackEthereum, callbackSolana:
		text = analysisText(b.svc.Prices.Price(ctx, q.Data))
	case callbackPrices:
		text = pricesText(b.svc.Prices.Prices(ctx))
	case callbackHelpVoice:
		text = helpVoiceText
	default:
		log.Debug().Str("data", q.Data).Msg("Ignoring unknown callback")
		return
	}

	if q.Message == nil || q.Message.Chat == nil {
		return
	}
	b.send(tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text))
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID, name := userOf(msg.From)
	log.Info().Str("user_id", userID).Msg("Text message received")

	answer := b.svc.Answers.Resolve(ctx, core.Question{
		Text:        msg.Text,
		UserID:      userID,
		DisplayName: name,
		ChatType:    store.ChatTypeText,
	})
	b.reply(msg.Chat.ID, answer.Text)
	b.sendVoice(ctx, msg.Chat.ID, answer.Text)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	userID, name := userOf(msg.From)
	log.Info().Str("user_id", userID).Msg("Voice message received")

	answer := core.VoiceReply(name)
	b.reply(msg.Chat.ID, answer)
	b.sendVoice(ctx, msg.Chat.ID, answer)
	b.svc.Answers.RecordVoice(ctx, userID, name, answer)
}

// sendVoice follows a text reply with synthesized audio when possible.
func (b *Bot) sendVoice(ctx context.Context, chatID int64, text string) {
	if !b.svc.VoiceReplies || b.svc.Speech == nil {
		return
	}
	audio, err := b.svc.Speech.Synthesize(ctx, text)
	if err != nil {
		if errors.Is(err, speech.ErrNoAudio) {
			log.Info().Err(err).Msg("Sending text only")
		} else {
			log.Warn().Err(err).Msg("Speech synthesis failed")
		}
		return
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{
		Name:  "omnix-" + uuid.NewString() + ".mp3",
		Bytes: audio,
	})
	b.send(voice)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		log.Warn().Err(err).Msg("Failed to send telegram message")
	}
}
