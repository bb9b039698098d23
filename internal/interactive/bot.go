// Package interactive runs the Telegram bot through which users manage their thresholds
package interactive

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pricewatch/internal/core"
	"pricewatch/internal/fetch"
	"pricewatch/internal/logger"
	"pricewatch/internal/messaging"
	"pricewatch/internal/render"

	"github.com/sony/gobreaker/v2"
)

// API is the subset of the Bot API the bot needs
type API interface {
	SendMessage(ctx context.Context, chatID, text string, keyboard *messaging.InlineKeyboardMarkup) (*messaging.Message, error)
	EditMessageText(ctx context.Context, chatID string, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	GetUpdates(ctx context.Context, offset int64, pollTimeout int) ([]messaging.Update, error)
}

// ThresholdStore reads and updates a user's thresholds
type ThresholdStore interface {
	Get(chatID string) core.ThresholdConfig
	Save(chatID string, luce, gas *float64) (core.ThresholdConfig, error)
}

// Choice is the value a user is about to type after /configura.
type Choice string

const (
	ChoiceBoth Choice = "both"
	ChoiceLuce Choice = "luce"
	ChoiceGas  Choice = "gas"
)

// Options tunes polling. Zero values select the defaults.
type Options struct {
	PollTimeout    int           // seconds a getUpdates call may stay open
	Backoff        time.Duration // pause after a failed poll
	TripAfter      uint32        // consecutive failures that open the breaker
	BreakerTimeout time.Duration // how long the breaker stays open
}

// Bot answers commands and guided input from Telegram chats.
type Bot struct {
	api     API
	store   ThresholdStore
	opts    Options
	breaker *gobreaker.CircuitBreaker[[]messaging.Update]

	mu      sync.Mutex
	pending map[string]Choice
}

// NewBot creates a bot over the given API client and store.
func NewBot(api API, store ThresholdStore, opts Options) *Bot {
	if opts.PollTimeout < 0 {
		opts.PollTimeout = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}

	breaker := gobreaker.NewCircuitBreaker[[]messaging.Update](gobreaker.Settings{
		Name:        "telegram-getUpdates",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Bot{
		api:     api,
		store:   store,
		opts:    opts,
		breaker: breaker,
		pending: make(map[string]Choice),
	}
}

// Run long-polls for updates until ctx is cancelled. Poll failures are
// retried after a pause; repeated failures open the circuit breaker so a
// dead API is not hammered.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	logger.Info("Bot polling started", "poll_timeout", b.opts.PollTimeout)

	for {
		if ctx.Err() != nil {
			logger.Info("Bot polling stopped")
			return nil
		}

		updates, err := b.breaker.Execute(func() ([]messaging.Update, error) {
			return b.api.GetUpdates(ctx, offset, b.opts.PollTimeout)
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				logger.Debug("Polling paused while breaker is open")
			} else {
				logger.Error("Failed to poll Telegram updates", err)
			}
			sleep(ctx, b.opts.Backoff)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if err := b.Handle(ctx, u); err != nil {
				logger.Error("Failed to handle update", err, "update_id", u.UpdateID)
			}
		}
	}
}

// Handle processes a single update.
func (b *Bot) Handle(ctx context.Context, u messaging.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && strings.TrimSpace(u.Message.Text) != "":
		chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
		text := strings.TrimSpace(u.Message.Text)
		if strings.HasPrefix(text, "/") {
			return b.handleCommand(ctx, chatID, text)
		}
		return b.handleText(ctx, chatID, text)
	default:
		return nil
	}
}

// Pending returns the choice chatID is expected to answer, if any.
func (b *Bot) Pending(chatID string) (Choice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.pending[chatID]
	return c, ok
}

func (b *Bot) setPending(chatID string, c Choice) {
	b.mu.Lock()
	b.pending[chatID] = c
	b.mu.Unlock()
}

func (b *Bot) clearPending(chatID string) {
	b.mu.Lock()
	delete(b.pending, chatID)
	b.mu.Unlock()
}

func (b *Bot) handleCommand(ctx context.Context, chatID, text string) error {
	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	args := strings.Join(fields[1:], " ")

	logger.Debug("Command received", "chat_id", chatID, "command", command)

	switch command {
	case "/start":
		return b.reply(ctx, chatID, welcomeText(b.store.Get(chatID)))
	case "/miesoglie":
		return b.reply(ctx, chatID, "Tuoi valori salvati:\n"+render.Thresholds(b.store.Get(chatID)))
	case "/configura":
		b.clearPending(chatID)
		_, err := b.api.SendMessage(ctx, chatID, configureText, configureKeyboard())
		return err
	case "/luce":
		return b.quickSet(ctx, chatID, core.Electricity, args)
	case "/gas":
		return b.quickSet(ctx, chatID, core.Gas, args)
	default:
		return b.reply(ctx, chatID, "Comando non riconosciuto. Usa /start per vedere i comandi disponibili.")
	}
}

// quickSet handles "/luce 0,25" and "/gas 0,90".
func (b *Bot) quickSet(ctx context.Context, chatID string, r core.Resource, args string) error {
	example := examplePrice(r)
	if args == "" {
		return b.reply(ctx, chatID, fmt.Sprintf("Uso: /%s %s", r, example))
	}

	v, err := fetch.ParsePrice(args)
	if err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("Numero non valido. Esempio: /%s %s", r, example))
	}

	cfg, err := b.save(chatID, r, v)
	if err != nil {
		return b.replySaveError(ctx, chatID, err)
	}
	verb := map[core.Resource]string{core.Electricity: "salvata", core.Gas: "salvato"}[r]
	return b.reply(ctx, chatID, fmt.Sprintf("%s %s: %.4f %s", r.Label(), verb, cfg.For(r).Price, r.Unit()))
}

func (b *Bot) handleCallback(ctx context.Context, q *messaging.CallbackQuery) error {
	if err := b.api.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		logger.Warn("Failed to answer callback query", "error", err)
	}

	chatID := strconv.FormatInt(q.From.ID, 10)
	if q.Message != nil {
		chatID = strconv.FormatInt(q.Message.Chat.ID, 10)
	}

	choice := Choice(q.Data)
	prompt, ok := choicePrompts[choice]
	if !ok {
		logger.Debug("Ignoring unknown callback data", "chat_id", chatID, "data", q.Data)
		return nil
	}
	b.setPending(chatID, choice)

	if q.Message != nil {
		return b.api.EditMessageText(ctx, chatID, q.Message.MessageID, prompt)
	}
	return b.reply(ctx, chatID, prompt)
}

// handleText consumes the answer to a pending /configura choice. Invalid
// input keeps the choice so the user can try again.
func (b *Bot) handleText(ctx context.Context, chatID, text string) error {
	choice, ok := b.Pending(chatID)
	if !ok {
		logger.Debug("Ignoring free text without a pending choice", "chat_id", chatID)
		return nil
	}

	switch choice {
	case ChoiceBoth:
		tokens := fetch.PriceTokens(text)
		if len(tokens) < 2 {
			return b.reply(ctx, chatID, "Non ho trovato due numeri. Riprova (es: 0,25 0,90).")
		}
		luce, errLuce := fetch.ParsePrice(tokens[0])
		gas, errGas := fetch.ParsePrice(tokens[1])
		if errLuce != nil || errGas != nil {
			return b.reply(ctx, chatID, "Formato non valido. Riprova (es: 0,25 0,90).")
		}
		cfg, err := b.store.Save(chatID, &luce, &gas)
		if err != nil {
			return b.replySaveError(ctx, chatID, err)
		}
		b.clearPending(chatID)
		return b.reply(ctx, chatID, "Salvato ✅\n"+render.Thresholds(cfg))

	case ChoiceLuce, ChoiceGas:
		r := core.Electricity
		other := core.Gas
		if choice == ChoiceGas {
			r, other = core.Gas, core.Electricity
		}
		v, err := fetch.ParsePrice(text)
		if err != nil {
			return b.reply(ctx, chatID, "Numero non valido. Esempio: "+examplePrice(r))
		}
		cfg, err := b.save(chatID, r, v)
		if err != nil {
			return b.replySaveError(ctx, chatID, err)
		}
		b.clearPending(chatID)
		return b.reply(ctx, chatID, fmt.Sprintf("Salvato ✅\n%s: %.4f %s\n%s attuale: %.4f %s",
			r.Label(), cfg.For(r).Price, r.Unit(), other.Label(), cfg.For(other).Price, other.Unit()))
	}
	return nil
}

func (b *Bot) save(chatID string, r core.Resource, v float64) (core.ThresholdConfig, error) {
	if r == core.Gas {
		return b.store.Save(chatID, nil, &v)
	}
	return b.store.Save(chatID, &v, nil)
}

func (b *Bot) replySaveError(ctx context.Context, chatID string, err error) error {
	logger.Error("Failed to save thresholds", err, "chat_id", chatID)
	return b.reply(ctx, chatID, "Non sono riuscito a salvare i valori, riprova.")
}

func (b *Bot) reply(ctx context.Context, chatID, text string) error {
	_, err := b.api.SendMessage(ctx, chatID, text, nil)
	return err
}

const configureText = "Vuoi impostare i tuoi prezzi?\n" +
	"• LUCE+GAS insieme in un solo messaggio (es: 0,25 0,90)\n" +
	"• Oppure solo uno dei due"

var choicePrompts = map[Choice]string{
	ChoiceBoth: "Inserisci LUCE e GAS (in quest'ordine) nello stesso messaggio.\n" +
		"Esempi validi:\n" +
		"• 0,25 0,90\n" +
		"• 0.25, 0.90\n" +
		"• 0,27€/kWh 0,88€/Smc",
	ChoiceLuce: "Inserisci il tuo prezzo LUCE (€/kWh), es: 0,25",
	ChoiceGas:  "Inserisci il tuo prezzo GAS (€/Smc), es: 0,90",
}

func configureKeyboard() *messaging.InlineKeyboardMarkup {
	return &messaging.InlineKeyboardMarkup{
		InlineKeyboard: [][]messaging.InlineKeyboardButton{
			{{Text: "Imposta LUCE+GAS insieme", CallbackData: string(ChoiceBoth)}},
			{
				{Text: "Solo LUCE", CallbackData: string(ChoiceLuce)},
				{Text: "Solo GAS", CallbackData: string(ChoiceGas)},
			},
		},
	}
}

func welcomeText(cfg core.ThresholdConfig) string {
	return strings.Join([]string{
		"Ciao! 👋 Questo bot salva i tuoi prezzi Luce e Gas e li userà nel monitor giornaliero.",
		"",
		"I tuoi valori correnti:",
		render.Thresholds(cfg),
		"",
		"Comandi utili:",
		"• /configura - imposta i prezzi (anche in un solo messaggio)",
		"• /miesoglie - mostra i tuoi valori salvati",
		"• /luce 0,25 - imposta solo la luce",
		"• /gas 0,90 - imposta solo il gas",
	}, "\n")
}

func examplePrice(r core.Resource) string {
	if r == core.Gas {
		return "0,90"
	}
	return "0,25"
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
