package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"omnix.dev/omnix-bot/internal/core"
	"omnix.dev/omnix-bot/internal/market"
	"omnix.dev/omnix-bot/internal/speech"
	"omnix.dev/omnix-bot/internal/store"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeAnswers struct {
	questions []core.Question
	voice     []string
}

func (f *fakeAnswers) Resolve(ctx context.Context, q core.Question) core.Answer {
	f.questions = append(f.questions, q)
	return core.Answer{Text: "respuesta para " + q.DisplayName, Source: core.SourceOffline}
}

func (f *fakeAnswers) RecordVoice(ctx context.Context, userID, displayName, answer string) {
	f.voice = append(f.voice, userID+":"+answer)
}

type fakePortfolios struct{}

func (fakePortfolios) Get(ctx context.Context, userID string) *store.Portfolio {
	return store.NewDefaultPortfolio(userID)
}

type fakeSpeech struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

func newTestBot(sp *fakeSpeech) (*Bot, *fakeSender, *fakeAnswers) {
	sender := &fakeSender{}
	answers := &fakeAnswers{}
	svc := Services{
		Answers:      answers,
		Portfolios:   fakePortfolios{},
		Prices:       market.NewOracle(nil, time.Second),
		VoiceReplies: true,
	}
	if sp != nil {
		svc.Speech = sp
	}
	return NewWithSender(sender, svc, 2), sender, answers
}

func textMessage(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 42, FirstName: "Ana"},
		Chat:      &tgbotapi.Chat{ID: 4242},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 42, FirstName: "Ana"},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 4242}},
		Data:    data,
	}}
}

func messageTexts(t *testing.T, sent []tgbotapi.Chattable) []string {
	t.Helper()
	var out []string
	for _, c := range sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestStartCommand(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.HandleUpdate(context.Background(), textMessage("/start"))

	texts := messageTexts(t, sender.sent)
	if len(texts) != 1 || !strings.Contains(texts[0], "Bienvenido a OMNIX") {
		t.Fatalf("unexpected replies %v", texts)
	}
}

func TestMenuCommandHasKeyboard(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.HandleUpdate(context.Background(), textMessage("/menu"))

	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	m := sender.sent[0].(tgbotapi.MessageConfig)
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 6 {
		t.Fatalf("expected 6-row inline keyboard, got %#v", m.ReplyMarkup)
	}
	if data := kb.InlineKeyboard[0][0].CallbackData; data == nil || *data != callbackPortfolio {
		t.Errorf("first button should open the portfolio")
	}
}

func TestPriceCommand(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.HandleUpdate(context.Background(), textMessage("/price btc"))
	b.HandleUpdate(context.Background(), textMessage("/price doge"))

	texts := messageTexts(t, sender.sent)
	if len(texts) != 2 {
		t.Fatalf("expected 2 replies, got %v", texts)
	}
	if !strings.Contains(texts[0], "$102,000.00 USD") {
		t.Errorf("expected bitcoin price, got %q", texts[0])
	}
	if !strings.Contains(texts[1], "no disponible") {
		t.Errorf("expected neutral unavailable text, got %q", texts[1])
	}
}

func TestTextMessageRepliesWithTextAndVoice(t *testing.T) {
	sp := &fakeSpeech{audio: make([]byte, 1024)}
	b, sender, answers := newTestBot(sp)
	b.HandleUpdate(context.Background(), textMessage("¿precio de bitcoin?"))

	if len(answers.questions) != 1 {
		t.Fatalf("expected one pipeline call, got %d", len(answers.questions))
	}
	q := answers.questions[0]
	if q.UserID != "42" || q.DisplayName != "Ana" || q.ChatType != store.ChatTypeText {
		t.Errorf("unexpected question %+v", q)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected text then voice, got %d sends", len(sender.sent))
	}
	if m, ok := sender.sent[0].(tgbotapi.MessageConfig); !ok || m.Text != "respuesta para Ana" {
		t.Errorf("first send should be the text answer, got %#v", sender.sent[0])
	}
	v, ok := sender.sent[1].(tgbotapi.VoiceConfig)
	if !ok {
		t.Fatalf("second send should be a voice note, got %T", sender.sent[1])
	}
	if fb, ok := v.File.(tgbotapi.FileBytes); !ok || len(fb.Bytes) != 1024 || !strings.HasSuffix(fb.Name, ".mp3") {
		t.Errorf("unexpected voice payload %#v", v.File)
	}
}

func TestTextMessageWithoutAudioSendsTextOnly(t *testing.T) {
	sp := &fakeSpeech{err: fmt.Errorf("all variants failed: %w", speech.ErrNoAudio)}
	b, sender, _ := newTestBot(sp)
	b.HandleUpdate(context.Background(), textMessage("hola"))

	if sp.calls != 1 {
		t.Errorf("expected one synthesis attempt, got %d", sp.calls)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected text only, got %d sends", len(sender.sent))
	}
	if _, ok := sender.sent[0].(tgbotapi.MessageConfig); !ok {
		t.Errorf("expected a text message, got %T", sender.sent[0])
	}
}

func TestVoiceMessage(t *testing.T) {
	sp := &fakeSpeech{err: errors.New("network down")}
	b, sender, answers := newTestBot(sp)

	update := textMessage("")
	update.Message.Voice = &tgbotapi.Voice{FileID: "voice-1", Duration: 3}
	b.HandleUpdate(context.Background(), update)

	if len(answers.questions) != 0 {
		t.Errorf("voice notes must not reach the pipeline")
	}
	if len(answers.voice) != 1 || !strings.HasPrefix(answers.voice[0], "42:") {
		t.Errorf("expected one voice record, got %v", answers.voice)
	}
	texts := messageTexts(t, sender.sent)
	if len(texts) != 1 || texts[0] != core.VoiceReply("Ana") {
		t.Errorf("unexpected replies %v", texts)
	}
}

func TestUnsupportedMessage(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	update := textMessage("")
	update.Message.Sticker = &tgbotapi.Sticker{FileID: "s"}
	b.HandleUpdate(context.Background(), update)

	texts := messageTexts(t, sender.sent)
	if len(texts) != 1 || texts[0] != unsupportedText {
		t.Errorf("unexpected replies %v", texts)
	}
}

func TestCallbacksEditTheMenuMessage(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{callbackPortfolio, "$10,000.00 USD"},
		{callbackBitcoin, "BITCOIN ANALYSIS"},
		{callbackEthereum, "$2,650.00 USD"},
		{callbackSolana, "$154.00 USD"},
		{callbackPrices, "XRP: $2.30 USD"},
		{callbackHelpVoice, "GUÍA MICRÓFONO"},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			b, sender, _ := newTestBot(nil)
			b.HandleUpdate(context.Background(), callback(tt.data))

			if len(sender.requested) != 1 {
				t.Fatalf("callback must be acknowledged once, got %d", len(sender.requested))
			}
			if len(sender.sent) != 1 {
				t.Fatalf("expected one edit, got %d", len(sender.sent))
			}
			edit, ok := sender.sent[0].(tgbotapi.EditMessageTextConfig)
			if !ok {
				t.Fatalf("expected an edit, got %T", sender.sent[0])
			}
			if edit.ChatID != 4242 || edit.MessageID != 77 {
				t.Errorf("edit targets wrong message: %d/%d", edit.ChatID, edit.MessageID)
			}
			if !strings.Contains(edit.Text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, edit.Text)
			}
		})
	}
}

func TestUnknownCallbackOnlyAcknowledges(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.HandleUpdate(context.Background(), callback("nope"))
	if len(sender.requested) != 1 || len(sender.sent) != 0 {
		t.Errorf("expected ack only, got %d requests / %d sends", len(sender.requested), len(sender.sent))
	}
}

func TestWorkerForIsStableAndInRange(t *testing.T) {
	for _, id := range []int64{0, 1, 7, -1001234567890, 4242} {
		w := workerFor(id, 4)
		if w < 0 || w >= 4 {
			t.Errorf("worker %d out of range for chat %d", w, id)
		}
		if w != workerFor(id, 4) {
			t.Errorf("routing for chat %d is not stable", id)
		}
	}
}

func TestRunWithoutConnection(t *testing.T) {
	b, _, _ := newTestBot(nil)
	if err := b.Run(context.Background()); err == nil {
		t.Errorf("expected error when no telegram connection is configured")
	}
}

func TestStopWorkersClosesQueuesAndReportsError(t *testing.T) {
	queues := []chan tgbotapi.Update{make(chan tgbotapi.Update, 1), make(chan tgbotapi.Update, 1)}
	waitErr := errors.New("worker failed")

	err := stopWorkers(queues, func() error { return waitErr })
	if !errors.Is(err, waitErr) {
		t.Errorf("expected wait error, got %v", err)
	}
	for i, q := range queues {
		if _, open := <-q; open {
			t.Errorf("queue %d still open", i)
		}
	}

	if err := stopWorkers(nil, func() error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
