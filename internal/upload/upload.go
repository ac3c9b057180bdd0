// Package upload stores admin attachments in the archive channel and records them as course files.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/rs/zerolog/log"

	"github.com/lavrd/wattle-files-tg/internal/metrics"
	"github.com/lavrd/wattle-files-tg/internal/repo"
	"github.com/lavrd/wattle-files-tg/internal/types"
)

// freecache doesn't accept less than 512kb.
const cacheSize = 512 * 1024

var (
	// ErrNoSelection means the admin hasn't opened any course yet.
	ErrNoSelection  = errors.New("no course selected")
	ErrEmptyCaption = errors.New("empty caption")
	// ErrDuplicate means the same message has been ingested already, e.g. webhook redelivery.
	ErrDuplicate = errors.New("duplicate upload")
)

type Archive interface {
	UploadToArchive(ctx context.Context, kind types.AttachmentKind, fileID, caption string) (int, error)
	ArchiveDeeplink(messageID string) string
}

type Result struct {
	Course types.Course
	File   types.File
}

type Pipeline struct {
	repo    repo.Repository
	archive Archive
	metrics *metrics.Metrics
	// Recently ingested messages.
	seen *freecache.Cache

	adminID  int64
	dedupTTL int
}

func New(
	repository repo.Repository, archive Archive, m *metrics.Metrics,
	adminID int64, dedupTTL time.Duration,
) *Pipeline {

	return &Pipeline{
		repo:     repository,
		archive:  archive,
		metrics:  m,
		seen:     freecache.NewCache(cacheSize),
		adminID:  adminID,
		dedupTTL: int(dedupTTL.Seconds()),
	}
}

// Ingest forwards the attachment to the archive channel and creates a file
// in the course the admin has opened most recently.
func (p *Pipeline) Ingest(ctx context.Context, user types.User, att types.Attachment) (Result, error) {
	result, err := p.ingest(ctx, user, att)
	p.metrics.UploadsTotal.WithLabelValues(status(err)).Inc()
	return result, err
}

func (p *Pipeline) ingest(ctx context.Context, user types.User, att types.Attachment) (Result, error) {
	logger := log.With().Int64("chat_id", user.ID).Int("message_id", att.MessageID).Logger()

	if user.ID != p.adminID {
		return Result{}, types.ErrUnauthorized
	}
	if !user.CurrentSelection.Valid || user.CurrentSelection.Int64 < 0 {
		return Result{}, ErrNoSelection
	}
	caption := strings.TrimSpace(att.Caption)
	if caption == "" {
		return Result{}, ErrEmptyCaption
	}

	key := []byte(fmt.Sprintf("%d:%d", att.Chat.ID, att.MessageID))
	prev, err := p.seen.GetOrSet(key, []byte{1}, p.dedupTTL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to remember upload: %w", err)
	}
	if prev != nil {
		return Result{}, ErrDuplicate
	}

	result, err := p.store(ctx, user.CurrentSelection.Int64, att, caption)
	if err != nil {
		// Let the admin resend the same message.
		p.seen.Del(key)
		return Result{}, err
	}
	logger.Info().Int64("course_id", result.Course.ID).Str("url", result.File.URL).Msg("file has been uploaded")
	return result, nil
}

func (p *Pipeline) store(ctx context.Context, courseID int64, att types.Attachment, caption string) (Result, error) {
	course, err := p.repo.FindCourse(ctx, courseID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find course: %w", err)
	}
	archiveID, err := p.archive.UploadToArchive(ctx, att.Kind, att.FileID, course.Name+" - "+caption)
	if err != nil {
		return Result{}, fmt.Errorf("failed to upload to archive: %w", err)
	}
	messageID := strconv.Itoa(archiveID)
	file, err := p.repo.CreateFile(ctx, types.File{
		Course:    course.ID,
		Title:     caption,
		MessageID: messageID,
		URL:       p.archive.ArchiveDeeplink(messageID),
		Date:      time.Now().UTC(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create file: %w", err)
	}
	return Result{Course: course, File: file}, nil
}

func status(err error) string {
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, types.ErrUnauthorized):
		return "refused"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrEmptyCaption):
		return "skipped"
	default:
		return "error"
	}
}
