package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MimeLyc/subtitle-bot/internal/service"
)

// ToMessage strips the Telegram types from an inbound message. The first
// media field present wins, in the order video, video note, audio, voice,
// document.
func ToMessage(msg *tgbotapi.Message) service.Message {
	ret := service.Message{
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.Chat != nil {
		ret.ChatID = msg.Chat.ID
	}
	if msg.From != nil {
		ret.UserID = msg.From.ID
	} else {
		ret.UserID = ret.ChatID
	}
	ret.Attachment = attachment(msg)
	return ret
}

func attachment(msg *tgbotapi.Message) *service.Attachment {
	switch {
	case msg.Video != nil:
		return &service.Attachment{
			FileID:   msg.Video.FileID,
			FileName: msg.Video.FileName,
			MimeType: msg.Video.MimeType,
			Size:     int64(msg.Video.FileSize),
			Kind:     service.AttachmentVideo,
		}
	case msg.VideoNote != nil:
		return &service.Attachment{
			FileID:   msg.VideoNote.FileID,
			MimeType: "video/mp4",
			Size:     int64(msg.VideoNote.FileSize),
			Kind:     service.AttachmentVideoNote,
		}
	case msg.Audio != nil:
		return &service.Attachment{
			FileID:   msg.Audio.FileID,
			FileName: msg.Audio.FileName,
			MimeType: msg.Audio.MimeType,
			Size:     int64(msg.Audio.FileSize),
			Kind:     service.AttachmentAudio,
		}
	case msg.Voice != nil:
		return &service.Attachment{
			FileID:   msg.Voice.FileID,
			MimeType: msg.Voice.MimeType,
			Size:     int64(msg.Voice.FileSize),
			Kind:     service.AttachmentVoice,
		}
	case msg.Document != nil:
		return &service.Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     int64(msg.Document.FileSize),
			Kind:     service.AttachmentDocument,
		}
	}
	return nil
}
