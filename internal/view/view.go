// Package view renders catalogue screens into messages which fit the platform limits.
package view

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lavrd/wattle-files-tg/internal/types"
)

// MaxMessageLength is a maximum number of characters in one message.
const MaxMessageLength = 4096

const courseURLTemplate = "https://wattlecourses.anu.edu.au/course/view.php?id=%d"

// Callback codes, see bot.Action.
const (
	CodeHome          = "0"
	CodeCourses       = "1"
	CodeSemesters     = "4"
	CodeNotifications = "5"
	CodeVideos        = "6"

	CbDelimiter = "$"
)

const (
	DefaultHomeStatus = "🏠 Home"

	labelHome            = "🏠 Home"
	labelCourses         = "🔍 Courses"
	labelShowCourses     = "🔍 Show Courses"
	labelSelectSemester  = "📆 Select Semester"
	labelDisableNotifies = "🛡️ Disable Notifications"
	labelEnableNotifies  = "📡 Enable Notifications"
	labelVideos          = "🎞️ Videos"
	labelThisCourse      = "📔 This course"
	labelThisCourseUp    = "📔 This Course"
)

// Plan is one logical screen split into messages.
// Keyboard belongs to the last fragment only.
type Plan struct {
	Fragments []string
	Keyboard  types.Keyboard
}

// Single returns a plan of one message.
func Single(text string, keyboard types.Keyboard) Plan {
	return Plan{Fragments: []string{text}, Keyboard: keyboard}
}

// Pack puts items one by one into fragments starting with header.
// An item which doesn't fit into the current fragment starts the next one.
func Pack(header string, items []string) []string {
	fragments := []string{header}
	current := utf8.RuneCountInString(header)
	for _, item := range items {
		n := utf8.RuneCountInString(item)
		if current+n > MaxMessageLength {
			fragments = append(fragments, item)
			current = n
			continue
		}
		fragments[len(fragments)-1] += item
		current += n
	}
	return fragments
}

// PrepCbData returns callback data delimiter-ed by code and value.
func PrepCbData(code, value string) string {
	return code + CbDelimiter + value
}

func courseCbData(courseID int64) string {
	return PrepCbData(CodeCourses, strconv.FormatInt(courseID, 10))
}

func HomeButton() types.Button {
	return types.Button{Label: labelHome, Data: CodeHome}
}

func Home(user types.User, status string) Plan {
	if status == "" {
		status = DefaultHomeStatus
	}
	toggle := types.Button{Label: labelEnableNotifies, Data: PrepCbData(CodeNotifications, "1")}
	if user.Notifications {
		toggle = types.Button{Label: labelDisableNotifies, Data: PrepCbData(CodeNotifications, "0")}
	}
	return Single(status, types.Keyboard{
		{toggle},
		{{Label: labelSelectSemester, Data: CodeSemesters}},
		{{Label: labelShowCourses, Data: CodeCourses}},
	})
}

func Semesters(semesters []string) Plan {
	sorted := append([]string(nil), semesters...)
	sort.Strings(sorted)
	keyboard := make(types.Keyboard, 0, len(sorted))
	for _, semester := range sorted {
		keyboard = append(keyboard, []types.Button{{Label: semester, Data: PrepCbData(CodeSemesters, semester)}})
	}
	return Single("Please select a semester.", keyboard)
}

func Courses(courses []types.Course) Plan {
	keyboard := make(types.Keyboard, 0, len(courses)+1)
	for _, course := range courses {
		keyboard = append(keyboard, []types.Button{{Label: course.Name, Data: courseCbData(course.ID)}})
	}
	keyboard = append(keyboard, []types.Button{HomeButton()})
	return Single("Please select a course.", keyboard)
}

// CourseContents lists course files. deeplink builds a link to an archived message.
func CourseContents(course types.Course, files []types.File, hasMedia bool, deeplink func(string) string) Plan {
	header := "No files available yet."
	if len(files) > 0 {
		header = fmt.Sprintf("Files for %s: \n", courseLink(course))
	}
	items := make([]string, 0, len(files))
	for _, file := range files {
		if file.Archived() {
			items = append(items, fmt.Sprintf("[%s](%s)\n", file.Title, deeplink(file.MessageID)))
			continue
		}
		items = append(items, fmt.Sprintf("[%s (external)](%s)\n", file.Title, file.URL))
	}

	row := []types.Button{HomeButton(), {Label: labelCourses, Data: CodeCourses}}
	if hasMedia {
		row = append(row, types.Button{
			Label: labelVideos, Data: PrepCbData(CodeVideos, strconv.FormatInt(course.ID, 10)),
		})
	}
	return Plan{Fragments: Pack(header, items), Keyboard: types.Keyboard{row}}
}

// Videos lists course recordings from the oldest one.
func Videos(course types.Course, multimedia []types.Media) Plan {
	header := "No videos uploaded yet."
	if len(multimedia) > 0 {
		header = fmt.Sprintf("Videos for %s: \n", courseLink(course))
	}
	sorted := append([]types.Media(nil), multimedia...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	items := make([]string, 0, len(sorted))
	for _, media := range sorted {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s](%s)", media.Name, media.PlayerURL)
		if media.MP4URL1 != "" {
			fmt.Fprintf(&b, " ([mp4](%s))", media.MP4URL1)
		}
		if media.MP4URL2 != "" {
			fmt.Fprintf(&b, ", ([mp4](%s))", media.MP4URL2)
		}
		b.WriteString("\n")
		items = append(items, b.String())
	}

	return Plan{Fragments: Pack(header, items), Keyboard: types.Keyboard{{
		HomeButton(),
		{Label: labelCourses, Data: CodeCourses},
		{Label: labelThisCourse, Data: courseCbData(course.ID)},
	}}}
}

// About is sent as markdown, so underscores are escaped.
func About() Plan {
	return Single(
		"This bot was created by @Alwinius based on @tummoodlebot. Source code is available at "+
			"https://github.com/Alwinius/anuwattlebot \nMore interesting bots: \n - "+
			"@tummensabot\n - @mydealz\\_bot",
		types.Keyboard{{HomeButton()}},
	)
}

func Greeting(semester string) string {
	return fmt.Sprintf(
		"This bot gives you access to selected ANU Wattle courses in %s. For more, check out /about", semester,
	)
}

// Refusal mentions the user id so the admin can match refusals with users.
func Refusal(userID int64) Plan {
	return Single(fmt.Sprintf("You're not allowed to upload files %d", userID), types.Keyboard{{HomeButton()}})
}

func UploadDone(course types.Course, file types.File) Plan {
	return Single(
		fmt.Sprintf("[%s - %s](%s)", course.Name, file.Title, file.URL),
		types.Keyboard{{HomeButton(), {Label: labelThisCourseUp, Data: courseCbData(course.ID)}}},
	)
}

func courseLink(course types.Course) string {
	name := strings.NewReplacer("[", "(", "]", ")").Replace(course.Name)
	url := course.URL
	if url == "" {
		url = fmt.Sprintf(courseURLTemplate, course.ID)
	}
	return fmt.Sprintf("[%s](%s)", name, url)
}
