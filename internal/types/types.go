package types

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrInternal        = errors.New("internal error")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateUser   = errors.New("user already exists")
	ErrDuplicateFileID = errors.New("file id already exists")
	ErrUnauthorized    = errors.New("not allowed")
	ErrUnknownCallback = errors.New("unknown callback")
	ErrPlatform        = errors.New("platform error")
)

// NoArchiveMessage is a File.MessageID which means the binary lives behind File.URL only.
const NoArchiveMessage = "0"

type User struct {
	CreatedAt   time.Time
	LastEventAt time.Time
	// Course opened most recently; admin uploads are routed to it.
	CurrentSelection sql.NullInt64
	FirstName        string
	LastName         string
	Username         string
	// Set for group chats only.
	Title         string
	Semester      string
	ID            int64
	Counter       int64
	Notifications bool
}

// UserMutation lists the user fields which may be changed after creation.
// Nil fields are left untouched.
type UserMutation struct {
	CurrentSelection *int64
	Notifications    *bool
	Semester         *string
	IncrementCounter bool
}

type Course struct {
	Name     string
	Semester string
	// Link to the course page, empty if unknown.
	URL string
	ID  int64
}

type File struct {
	Date  time.Time
	Title string
	// Message id in the archive channel or NoArchiveMessage.
	MessageID string
	URL       string
	ID        int64
	Course    int64
}

// Archived reports whether the binary is stored in the archive channel.
func (f File) Archived() bool { return f.MessageID != NoArchiveMessage }

type Media struct {
	Date      time.Time
	Name      string
	PlayerURL string
	MP4URL1   string
	MP4URL2   string
	ID        int64
	Course    int64
}
