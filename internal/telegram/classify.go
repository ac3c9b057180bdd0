package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lavrd/wattle-files-tg/internal/types"
)

// CommandStart is used for plain text messages as well.
const CommandStart = "start"

// Classify converts an update into a Command, Callback or Attachment.
// It returns false for updates the bot doesn't handle.
func Classify(update tgbotapi.Update) (types.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		event := types.Callback{ID: callback.ID, Data: callback.Data}
		if callback.Message != nil && callback.Message.Chat != nil {
			event.Chat = chatFrom(callback.Message.Chat)
			event.OriginMessageID = callback.Message.MessageID
		} else if callback.From != nil {
			event.Chat = types.Chat{
				ID:        callback.From.ID,
				FirstName: callback.From.FirstName,
				LastName:  callback.From.LastName,
				Username:  callback.From.UserName,
			}
		} else {
			return nil, false
		}
		return event, true
	case update.Message != nil && update.Message.Chat != nil:
		return classifyMessage(update.Message)
	}
	return nil, false
}

func classifyMessage(message *tgbotapi.Message) (types.Event, bool) {
	chat := chatFrom(message.Chat)
	attachment := types.Attachment{Chat: chat, Caption: message.Caption, MessageID: message.MessageID}
	switch {
	case message.Document != nil:
		attachment.Kind = types.DocumentAttachment
		attachment.FileID = message.Document.FileID
		return attachment, true
	case len(message.Photo) > 0:
		attachment.Kind = types.PhotoAttachment
		attachment.FileID = largestPhoto(message.Photo).FileID
		return attachment, true
	case message.Video != nil:
		attachment.Kind = types.VideoAttachment
		attachment.FileID = message.Video.FileID
		return attachment, true
	case message.IsCommand():
		return types.Command{Name: message.Command(), Chat: chat, MessageID: message.MessageID}, true
	case message.Text != "":
		return types.Command{Name: CommandStart, Chat: chat, MessageID: message.MessageID}, true
	}
	return nil, false
}

// largestPhoto returns the biggest variant; the last one wins a tie as Telegram sorts them ascending.
func largestPhoto(photos []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	largest := photos[0]
	for _, photo := range photos[1:] {
		if photo.Width*photo.Height >= largest.Width*largest.Height {
			largest = photo
		}
	}
	return largest
}

func chatFrom(chat *tgbotapi.Chat) types.Chat {
	return types.Chat{
		ID:        chat.ID,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.UserName,
		Title:     chat.Title,
	}
}
