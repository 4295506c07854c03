// Package notify sends best-effort progress messages to a chat.
package notify

import (
	"context"

	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// TextSender delivers a plain text message to a chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Notifier never reports failures to the caller; they only show up in logs.
type Notifier struct {
	sender TextSender
}

func New(sender TextSender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends message to chatID and swallows any error.
func (n *Notifier) Notify(ctx context.Context, chatID int64, message string) {
	if n == nil || n.sender == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Progress message to chat %d panicked: %v", chatID, r)
		}
	}()
	if err := n.sender.SendText(ctx, chatID, message); err != nil {
		log.Warn("Failed to send progress message to chat %d: %v", chatID, err)
	}
}
