// Package telegram adapts the bot api to the catalogue: outbound messages, archive uploads
// and classification of inbound updates.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/lavrd/wattle-files-tg/internal/config"
	"github.com/lavrd/wattle-files-tg/internal/metrics"
	"github.com/lavrd/wattle-files-tg/internal/types"
)

const deeplinkHost = "https://t.me"

// Telegram answers with this error when edit doesn't change anything, e.g. Home pressed on Home.
const errNotModified = "message is not modified"

type Gateway struct {
	tg      *tgbotapi.BotAPI
	metrics *metrics.Metrics

	channelID   int64
	channelName string
}

func New(cfg *config.Config, m *metrics.Metrics) (*Gateway, error) {
	endpoint := cfg.TgBotEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	tg, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: cfg.RequestTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize new telegram client: %w", err)
	}
	tg.Debug = cfg.Verbose
	log.Info().Str("username", tg.Self.UserName).Msg("authorized in telegram")
	return &Gateway{
		tg:          tg,
		metrics:     m,
		channelID:   cfg.FilesChannelID,
		channelName: cfg.FilesChannelName,
	}, nil
}

// SetWebhook registers public url which receives updates.
func (g *Gateway) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("failed to create webhook config: %w", err)
	}
	if _, err = g.tg.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// Send delivers a new markdown message and returns its id.
func (g *Gateway) Send(ctx context.Context, chatID int64, text string, keyboard types.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if markup := inlineMarkup(keyboard); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := g.send(ctx, "send", msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces text and buttons of the existing message.
func (g *Gateway) Edit(
	ctx context.Context, chatID int64, messageID int, text string, keyboard types.Keyboard,
) error {

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = inlineMarkup(keyboard)
	_, err := g.send(ctx, "edit", edit)
	if err != nil && strings.Contains(err.Error(), errNotModified) {
		return nil
	}
	return err
}

// Notify sends a plain text message, without markdown.
func (g *Gateway) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := g.send(ctx, "notify", tgbotapi.NewMessage(chatID, text))
	return err
}

// Greet sends a plain text message and removes a custom keyboard left by other bots.
func (g *Gateway) Greet(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, err := g.send(ctx, "greet", msg)
	return err
}

// AnswerCallback stops the loading indicator on the pressed button.
func (g *Gateway) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	if _, err := g.tg.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		g.metrics.PlatformErrorsTotal.WithLabelValues("answer").Inc()
		return fmt.Errorf("failed to answer callback: %w: %w", types.ErrPlatform, err)
	}
	return nil
}

// UploadToArchive forwards already uploaded binary to the archive channel
// and returns the id of the archived message.
func (g *Gateway) UploadToArchive(
	ctx context.Context, kind types.AttachmentKind, fileID, caption string,
) (int, error) {

	file := tgbotapi.FileID(fileID)
	var chattable tgbotapi.Chattable
	switch kind {
	case types.PhotoAttachment:
		photo := tgbotapi.NewPhoto(g.channelID, file)
		photo.Caption = caption
		chattable = photo
	case types.VideoAttachment:
		video := tgbotapi.NewVideo(g.channelID, file)
		video.Caption = caption
		chattable = video
	default:
		document := tgbotapi.NewDocument(g.channelID, file)
		document.Caption = caption
		chattable = document
	}
	sent, err := g.send(ctx, "upload", chattable)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// ArchiveDeeplink returns a public link to the archived message.
func (g *Gateway) ArchiveDeeplink(messageID string) string {
	return Deeplink(g.channelName, messageID)
}

func Deeplink(channelName, messageID string) string {
	return fmt.Sprintf("%s/%s/%s", deeplinkHost, channelName, messageID)
}

func (g *Gateway) send(ctx context.Context, operation string, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("failed to %s message: %w", operation, err)
	}
	msg, err := g.tg.Send(chattable)
	if err != nil {
		if !strings.Contains(err.Error(), errNotModified) {
			g.metrics.PlatformErrorsTotal.WithLabelValues(operation).Inc()
		}
		return tgbotapi.Message{}, fmt.Errorf("failed to %s message: %w: %w", operation, types.ErrPlatform, err)
	}
	return msg, nil
}

func inlineMarkup(keyboard types.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
