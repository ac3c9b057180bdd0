// Package bot routes inbound events to catalogue views, user mutations and admin uploads.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lavrd/wattle-files-tg/internal/metrics"
	"github.com/lavrd/wattle-files-tg/internal/repo"
	"github.com/lavrd/wattle-files-tg/internal/session"
	"github.com/lavrd/wattle-files-tg/internal/types"
	"github.com/lavrd/wattle-files-tg/internal/upload"
	"github.com/lavrd/wattle-files-tg/internal/view"
)

const CommandAbout = "about"

const (
	textSomethingWrong  = "Something went wrong, try again later"
	textUnknownCallback = "Command not recognised"
	textEmptyCaption    = "Add a caption to the file, it is used as the file title"
)

// Gateway is the part of the messaging platform the bot talks to.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, keyboard types.Keyboard) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard types.Keyboard) error
	Notify(ctx context.Context, chatID int64, text string) error
	Greet(ctx context.Context, chatID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	ArchiveDeeplink(messageID string) string
}

type Bot struct {
	gateway  Gateway
	repo     repo.Repository
	sessions *session.Service
	uploads  *upload.Pipeline
	metrics  *metrics.Metrics

	adminID int64
}

func New(
	gateway Gateway, repository repo.Repository,
	sessions *session.Service, uploads *upload.Pipeline, m *metrics.Metrics,
	adminID int64,
) *Bot {

	return &Bot{
		gateway:  gateway,
		repo:     repository,
		sessions: sessions,
		uploads:  uploads,
		metrics:  m,
		adminID:  adminID,
	}
}

// Handle processes one inbound event. It never panics and never returns errors:
// failures are logged and the user gets a reply where it makes sense.
func (b *Bot) Handle(ctx context.Context, event types.Event) {
	kind := eventKind(event)
	logger := log.With().Int64("chat_id", event.Source().ID).Str("kind", kind).Logger()
	start := time.Now()
	status := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("recovered from panic in handler")
			status = "panic"
		}
		b.metrics.UpdatesTotal.WithLabelValues(kind, status).Inc()
		b.metrics.UpdateDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	err := b.handle(logger.WithContext(ctx), event)
	status = statusOf(err)
	if err != nil && status == "error" {
		logger.Error().Err(err).Msg("failed to handle update")
	}
}

func (b *Bot) handle(ctx context.Context, event types.Event) error {
	chat := event.Source()

	var (
		action    Action
		actionErr error
		selection *int64
	)
	if callback, ok := event.(types.Callback); ok {
		action, actionErr = ParseAction(callback.Data)
		if actionErr == nil && action.Kind == ActionOpenCourse {
			selection = &action.CourseID
		}
	}

	user, created, err := b.sessions.Ensure(ctx, chat, selection)
	if err != nil {
		b.reply500(ctx, chat.ID)
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	if created {
		if err = b.gateway.Greet(ctx, chat.ID, view.Greeting(user.Semester)); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to greet user")
		}
	}

	switch e := event.(type) {
	case types.Command:
		return b.handleCommand(ctx, e, user)
	case types.Callback:
		if err = b.gateway.AnswerCallback(ctx, e.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to answer callback")
		}
		if actionErr != nil {
			b.unknownCallback(ctx, e)
			return actionErr
		}
		return b.handleAction(ctx, e, user, action)
	case types.Attachment:
		return b.handleAttachment(ctx, e, user)
	}
	return fmt.Errorf("unexpected event %T: %w", event, types.ErrInternal)
}

func (b *Bot) handleCommand(ctx context.Context, command types.Command, user types.User) error {
	switch command.Name {
	case CommandAbout:
		return b.deliver(ctx, command, view.About())
	default:
		return b.deliver(ctx, command, view.Home(user, ""))
	}
}

func (b *Bot) handleAction(ctx context.Context, callback types.Callback, user types.User, action Action) error {
	var plan view.Plan
	switch action.Kind {
	case ActionHome:
		plan = view.Home(user, "")
	case ActionCourses:
		courses, err := b.repo.ListCourses(ctx, user.Semester)
		if err != nil {
			b.reply500(ctx, user.ID)
			return fmt.Errorf("failed to list courses: %w", err)
		}
		plan = view.Courses(courses)
	case ActionOpenCourse:
		course, err := b.findCourse(ctx, callback, action.CourseID)
		if err != nil {
			return err
		}
		files, err := b.repo.ListFiles(ctx, course.ID)
		if err != nil {
			b.reply500(ctx, user.ID)
			return fmt.Errorf("failed to list files: %w", err)
		}
		hasMedia, err := b.repo.HasMedia(ctx, course.ID)
		if err != nil {
			b.reply500(ctx, user.ID)
			return fmt.Errorf("failed to check media: %w", err)
		}
		plan = view.CourseContents(course, files, hasMedia, b.gateway.ArchiveDeeplink)
	case ActionSemesters:
		semesters, err := b.repo.ListSemesters(ctx)
		if err != nil {
			b.reply500(ctx, user.ID)
			return fmt.Errorf("failed to list semesters: %w", err)
		}
		plan = view.Semesters(semesters)
	case ActionSetSemester:
		updated, changed, err := b.sessions.SetSemester(ctx, user, action.Semester)
		if err != nil {
			b.reply500(ctx, user.ID)
			return err
		}
		status := "Semester not changed."
		if changed {
			status = "Semester changed to " + updated.Semester
		}
		plan = view.Home(updated, status)
	case ActionSetNotifications:
		updated, changed, err := b.sessions.SetNotifications(ctx, user, action.Notifications)
		if err != nil {
			b.reply500(ctx, user.ID)
			return err
		}
		status := "Notifications not changed."
		switch {
		case changed && updated.Notifications:
			status = "Notifications are activated."
		case changed:
			status = "Notifications are deactivated."
		}
		plan = view.Home(updated, status)
	case ActionVideos:
		course, err := b.findCourse(ctx, callback, action.CourseID)
		if err != nil {
			return err
		}
		multimedia, err := b.repo.ListMedia(ctx, course.ID)
		if err != nil {
			b.reply500(ctx, user.ID)
			return fmt.Errorf("failed to list media: %w", err)
		}
		plan = view.Videos(course, multimedia)
	default:
		b.unknownCallback(ctx, callback)
		return fmt.Errorf("action %d: %w", action.Kind, types.ErrUnknownCallback)
	}
	return b.deliver(ctx, callback, plan)
}

// findCourse treats a missing course as an unknown callback, e.g. a button left from a removed course.
func (b *Bot) findCourse(ctx context.Context, callback types.Callback, courseID int64) (types.Course, error) {
	course, err := b.repo.FindCourse(ctx, courseID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		b.unknownCallback(ctx, callback)
		return types.Course{}, fmt.Errorf("course %d: %w", courseID, types.ErrUnknownCallback)
	case err != nil:
		b.reply500(ctx, callback.Chat.ID)
		return types.Course{}, fmt.Errorf("failed to find course: %w", err)
	}
	return course, nil
}

func (b *Bot) handleAttachment(ctx context.Context, attachment types.Attachment, user types.User) error {
	logger := zerolog.Ctx(ctx)
	result, err := b.uploads.Ingest(ctx, user, attachment)
	switch {
	case err == nil:
		return b.deliver(ctx, attachment, view.UploadDone(result.Course, result.File))
	case errors.Is(err, types.ErrUnauthorized):
		if deliverErr := b.deliver(ctx, attachment, view.Refusal(user.ID)); deliverErr != nil {
			return deliverErr
		}
		return err
	case errors.Is(err, upload.ErrNoSelection), errors.Is(err, upload.ErrDuplicate):
		logger.Debug().Err(err).Msg("upload has been skipped")
		return nil
	case errors.Is(err, upload.ErrEmptyCaption):
		return b.gateway.Notify(ctx, user.ID, textEmptyCaption)
	}
	b.reply500(ctx, user.ID)
	return fmt.Errorf("failed to ingest attachment: %w", err)
}

func (b *Bot) unknownCallback(ctx context.Context, callback types.Callback) {
	logger := zerolog.Ctx(ctx)
	if err := b.gateway.Notify(ctx, callback.Chat.ID, textUnknownCallback); err != nil {
		logger.Error().Err(err).Msg("failed to reply to unknown callback")
	}
	text := fmt.Sprintf("Inlinecommand not recognised.\n\nData: %s\n User: %s", callback.Data, callback.Chat)
	if err := b.gateway.Notify(ctx, b.adminID, text); err != nil {
		logger.Error().Err(err).Msg("failed to notify admin about unknown callback")
	}
}

// deliver sends the plan fragment by fragment. A failed fragment doesn't stop the rest.
func (b *Bot) deliver(ctx context.Context, event types.Event, plan view.Plan) error {
	chatID := event.Source().ID
	var errs []error
	for i, fragment := range plan.Fragments {
		var keyboard types.Keyboard
		if i == len(plan.Fragments)-1 {
			keyboard = plan.Keyboard
		}
		var err error
		if i == 0 {
			err = b.sendOrEdit(ctx, event, fragment, keyboard)
		} else {
			_, err = b.gateway.Send(ctx, chatID, fragment, keyboard)
		}
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int("fragment", i).Msg("failed to deliver message")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sendOrEdit edits the message with the pressed button and sends a new message otherwise.
func (b *Bot) sendOrEdit(ctx context.Context, event types.Event, text string, keyboard types.Keyboard) error {
	if callback, ok := event.(types.Callback); ok && callback.OriginMessageID != 0 {
		return b.gateway.Edit(ctx, callback.Chat.ID, callback.OriginMessageID, text, keyboard)
	}
	_, err := b.gateway.Send(ctx, event.Source().ID, text, keyboard)
	return err
}

func (b *Bot) reply500(ctx context.Context, chatID int64) {
	if err := b.gateway.Notify(ctx, chatID, textSomethingWrong); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to send message")
	}
}

func eventKind(event types.Event) string {
	switch event.(type) {
	case types.Command:
		return "command"
	case types.Callback:
		return "callback"
	case types.Attachment:
		return "attachment"
	}
	return "unknown"
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrUnknownCallback):
		return "unknown"
	case errors.Is(err, types.ErrUnauthorized):
		return "refused"
	default:
		return "error"
	}
}
