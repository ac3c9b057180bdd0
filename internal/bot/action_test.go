package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lavrd/wattle-files-tg/internal/types"
	"github.com/lavrd/wattle-files-tg/internal/view"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		data   string
		action Action
	}{
		{data: "0", action: Action{Kind: ActionHome}},
		{data: "1", action: Action{Kind: ActionCourses}},
		{data: "1$7", action: Action{Kind: ActionOpenCourse, CourseID: 7}},
		{data: "4", action: Action{Kind: ActionSemesters}},
		{data: "4$Sem 1 2019", action: Action{Kind: ActionSetSemester, Semester: "Sem 1 2019"}},
		{data: "4$Sem $2", action: Action{Kind: ActionSetSemester, Semester: "Sem $2"}},
		{data: "5$0", action: Action{Kind: ActionSetNotifications, Notifications: false}},
		{data: "5$1", action: Action{Kind: ActionSetNotifications, Notifications: true}},
		{data: "6$12", action: Action{Kind: ActionVideos, CourseID: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			r := require.New(t)
			action, err := ParseAction(tt.data)
			r.NoError(err)
			r.Equal(tt.action, action)
		})
	}
}

func TestParseActionUnknown(t *testing.T) {
	for _, data := range []string{"", "0$1", "1$", "1$abc", "2", "3$1", "4$", "5", "5$2", "6", "6$x", "9$9"} {
		t.Run(data, func(t *testing.T) {
			r := require.New(t)
			_, err := ParseAction(data)
			r.Error(err)
			r.True(errors.Is(err, types.ErrUnknownCallback))
		})
	}
}

// Every button rendered by the views is understood by the parser.
func TestParseViewButtons(t *testing.T) {
	r := require.New(t)

	course := types.Course{ID: 7, Name: "COMP2310"}
	plans := []view.Plan{
		view.Home(types.User{Notifications: true}, ""),
		view.Home(types.User{Notifications: false}, ""),
		view.Semesters([]string{"Sem 1 2019", "Sem 2 2018"}),
		view.Courses([]types.Course{course}),
		view.CourseContents(course, nil, true, func(id string) string { return id }),
		view.Videos(course, nil),
		view.About(),
		view.Refusal(42),
		view.UploadDone(course, types.File{Title: "Week 3 notes"}),
	}
	expected := map[string]Action{
		"0":            {Kind: ActionHome},
		"1":            {Kind: ActionCourses},
		"1$7":          {Kind: ActionOpenCourse, CourseID: 7},
		"4":            {Kind: ActionSemesters},
		"4$Sem 1 2019": {Kind: ActionSetSemester, Semester: "Sem 1 2019"},
		"4$Sem 2 2018": {Kind: ActionSetSemester, Semester: "Sem 2 2018"},
		"5$0":          {Kind: ActionSetNotifications, Notifications: false},
		"5$1":          {Kind: ActionSetNotifications, Notifications: true},
		"6$7":          {Kind: ActionVideos, CourseID: 7},
	}
	seen := map[string]bool{}
	for _, plan := range plans {
		for _, row := range plan.Keyboard {
			for _, button := range row {
				action, err := ParseAction(button.Data)
				r.NoError(err, button.Data)
				r.Equal(expected[button.Data], action, button.Data)
				seen[button.Data] = true
			}
		}
	}
	r.Len(seen, len(expected))
}
