package telegram

import (
	"fmt"
	"sync"

	"MesaQR/internal/bus"
	"MesaQR/internal/config"
	"MesaQR/pkg/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

var bot *tgbotapi.BotAPI
var once sync.Once

func getBot() (*tgbotapi.BotAPI, error) {
	var err error
	once.Do(func() {
		cfg := config.GetConfig()
		bot, err = tgbotapi.NewBotAPI(cfg.TELEGRAM.BotToken)
		if err != nil {
			err = errors.Wrap(err, "failed tgbotapi.NewBotAPI()")
			return
		}
		bot.Debug = cfg.TELEGRAM.Debug == 1
	})
	if bot == nil && err == nil {
		err = errors.New("telegram bot is not initialized")
	}
	return bot, err
}

// SendMessage pushes a text message to the configured ops chat.
func SendMessage(text string) error {
	cfg := config.GetConfig()

	b, err := getBot()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(cfg.TELEGRAM.ChatID, text)
	if _, err := b.Send(msg); err != nil {
		return errors.Wrapf(err, "failed bot.Send() to chat %d", cfg.TELEGRAM.ChatID)
	}
	return nil
}

// NotifierStart subscribes to the admin room and forwards completed and
// cancelled orders to Telegram. Best-effort: a send failure is logged and
// the loop keeps going. Does nothing when no bot token is configured.
func NotifierStart(b *bus.Bus) {

	logger := logging.GetLogger()
	logger.Info("Start NotifierStart")
	defer logger.Info("End NotifierStart")

	cfg := config.GetConfig()
	if cfg.TELEGRAM.BotToken == "" {
		logger.Info("Telegram:>No bot token configured, notifier disabled")
		return
	}

	sub := b.Subscribe(64, bus.RoomAdmin)
	defer sub.Close()

	for ev := range sub.Events() {
		text := formatEvent(ev)
		if text == "" {
			continue
		}
		if err := SendMessage(text); err != nil {
			logger.Errorf("failed telegram.SendMessage(), error: %v", err)
		}
	}
}

// formatEvent renders the ops chat message for an event. Empty string means
// the event is not reported.
func formatEvent(ev bus.Event) string {
	switch ev.Name {
	case bus.EventCompleted:
		return fmt.Sprintf("✅ Pedido %s completado, mesa %d, total %s €",
			ev.Order.OrderNumber, ev.Order.Table.Number, ev.Order.Total)
	case bus.EventCancelled:
		return fmt.Sprintf("❌ Pedido %s cancelado, mesa %d",
			ev.Order.OrderNumber, ev.Order.Table.Number)
	}
	return ""
}
