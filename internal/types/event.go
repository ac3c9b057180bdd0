package types

import "fmt"

// Button is an inline button with callback data.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of inline buttons, row by row.
type Keyboard [][]Button

// Chat describes the conversation an event came from.
type Chat struct {
	FirstName string
	LastName  string
	Username  string
	Title     string
	ID        int64
}

func (c Chat) String() string {
	return fmt.Sprintf("{id: %d, username: %q, first_name: %q, last_name: %q, title: %q}",
		c.ID, c.Username, c.FirstName, c.LastName, c.Title)
}

// Event is an inbound update: Command, Callback or Attachment.
type Event interface {
	Source() Chat
}

type Command struct {
	Name      string
	Chat      Chat
	MessageID int
}

func (c Command) Source() Chat { return c.Chat }

type Callback struct {
	ID   string
	Data string
	Chat Chat
	// Message which carried the pressed button, zero if unknown.
	OriginMessageID int
}

func (c Callback) Source() Chat { return c.Chat }

type AttachmentKind string

const (
	DocumentAttachment AttachmentKind = "document"
	PhotoAttachment    AttachmentKind = "photo"
	VideoAttachment    AttachmentKind = "video"
)

type Attachment struct {
	Kind AttachmentKind
	// Platform reference to the uploaded binary.
	FileID    string
	Caption   string
	Chat      Chat
	MessageID int
}

func (a Attachment) Source() Chat { return a.Chat }
