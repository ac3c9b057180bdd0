package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lavrd/wattle-files-tg/internal/types"
	"github.com/lavrd/wattle-files-tg/internal/view"
)

type ActionKind int

const (
	ActionHome ActionKind = iota
	ActionCourses
	ActionOpenCourse
	ActionSemesters
	ActionSetSemester
	ActionSetNotifications
	ActionVideos
)

// Action is a decoded callback payload.
type Action struct {
	Semester      string
	Kind          ActionKind
	CourseID      int64
	Notifications bool
}

// ParseAction decodes callback data in the form of <code> or <code>$<arg>.
func ParseAction(data string) (Action, error) {
	code, arg, hasArg := parseCbData(data)
	switch {
	case code == view.CodeHome && !hasArg:
		return Action{Kind: ActionHome}, nil
	case code == view.CodeCourses && !hasArg:
		return Action{Kind: ActionCourses}, nil
	case code == view.CodeCourses:
		courseID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("failed to parse course id %q: %w", arg, types.ErrUnknownCallback)
		}
		return Action{Kind: ActionOpenCourse, CourseID: courseID}, nil
	case code == view.CodeSemesters && !hasArg:
		return Action{Kind: ActionSemesters}, nil
	case code == view.CodeSemesters && arg != "":
		return Action{Kind: ActionSetSemester, Semester: arg}, nil
	case code == view.CodeNotifications && (arg == "0" || arg == "1"):
		return Action{Kind: ActionSetNotifications, Notifications: arg == "1"}, nil
	case code == view.CodeVideos:
		courseID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("failed to parse course id %q: %w", arg, types.ErrUnknownCallback)
		}
		return Action{Kind: ActionVideos, CourseID: courseID}, nil
	}
	return Action{}, fmt.Errorf("%q: %w", data, types.ErrUnknownCallback)
}

// Returns topic and value; value may contain delimiter itself, e.g. in a semester name.
func parseCbData(data string) (string, string, bool) {
	return strings.Cut(data, view.CbDelimiter)
}
