package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/service"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// Dispatcher is service.Handler.
type Dispatcher interface {
	HandleStart(ctx context.Context, msg service.Message)
	HandleSetLanguage(ctx context.Context, msg service.Message, args []string)
	HandleMedia(ctx context.Context, msg service.Message) (*jobs.Job, error)
}

// Run long-polls for updates and dispatches them until ctx is done.
func (b *Bot) Run(ctx context.Context, d Dispatcher) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	log.Info("Polling telegram updates")
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopped polling telegram updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			Dispatch(ctx, d, update)
		}
	}
}

// Dispatch routes one update. Anything that is not a known command or a
// media message is ignored.
func Dispatch(ctx context.Context, d Dispatcher, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	in := ToMessage(msg)

	if msg.IsCommand() {
		switch strings.ToLower(msg.Command()) {
		case "start", "help":
			d.HandleStart(ctx, in)
		case "setlanguage":
			d.HandleSetLanguage(ctx, in, strings.Fields(msg.CommandArguments()))
		default:
			log.Debug("Ignoring unknown command /%s from user %d", msg.Command(), in.UserID)
		}
		return
	}

	if in.Attachment == nil {
		log.Debug("Ignoring message %d without media from user %d", in.MessageID, in.UserID)
		return
	}
	if _, err := d.HandleMedia(ctx, in); err != nil {
		log.Debug("Upload from user %d not admitted: %v", in.UserID, err)
	}
}
