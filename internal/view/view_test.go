package view

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/lavrd/wattle-files-tg/internal/types"
)

func deeplink(messageID string) string { return "https://t.me/anuwattlefiles/" + messageID }

func TestPack(t *testing.T) {
	r := require.New(t)

	header := strings.Repeat("h", 300)
	items := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, strings.Repeat("i", 99)+"\n")
	}

	fragments := Pack(header, items)
	r.Len(fragments, 2)
	r.Equal(300+37*100, utf8.RuneCountInString(fragments[0]))
	r.Equal(13*100, utf8.RuneCountInString(fragments[1]))
	r.Equal(header+strings.Join(items, ""), strings.Join(fragments, ""))

	// Exactly the limit still fits.
	fragments = Pack(strings.Repeat("h", MaxMessageLength-10), []string{strings.Repeat("i", 10)})
	r.Len(fragments, 1)
	fragments = Pack(strings.Repeat("h", MaxMessageLength-10), []string{strings.Repeat("i", 11)})
	r.Len(fragments, 2)

	r.Equal([]string{"header"}, Pack("header", nil))
}

func TestPackCountsCharacters(t *testing.T) {
	r := require.New(t)

	// 4 bytes per rune, but only characters count.
	item := strings.Repeat("🎞", 1000)
	fragments := Pack("", []string{item, item, item, item})
	r.Len(fragments, 1)
	fragments = Pack("", []string{item, item, item, item, item})
	r.Len(fragments, 2)
	for _, fragment := range fragments {
		r.LessOrEqual(utf8.RuneCountInString(fragment), MaxMessageLength)
	}
}

func TestHome(t *testing.T) {
	r := require.New(t)

	plan := Home(types.User{Notifications: true}, "")
	r.Equal([]string{"🏠 Home"}, plan.Fragments)
	r.Equal(types.Keyboard{
		{{Label: "🛡️ Disable Notifications", Data: "5$0"}},
		{{Label: "📆 Select Semester", Data: "4"}},
		{{Label: "🔍 Show Courses", Data: "1"}},
	}, plan.Keyboard)

	plan = Home(types.User{Notifications: false}, "Semester changed to Sem 1 2019")
	r.Equal([]string{"Semester changed to Sem 1 2019"}, plan.Fragments)
	r.Equal(types.Button{Label: "📡 Enable Notifications", Data: "5$1"}, plan.Keyboard[0][0])
}

func TestSemesters(t *testing.T) {
	r := require.New(t)

	semesters := []string{"Sem 2 2018", "Sem 1 2019", "Sem 1 2018"}
	plan := Semesters(semesters)
	r.Equal([]string{"Please select a semester."}, plan.Fragments)
	r.Equal(types.Keyboard{
		{{Label: "Sem 1 2018", Data: "4$Sem 1 2018"}},
		{{Label: "Sem 1 2019", Data: "4$Sem 1 2019"}},
		{{Label: "Sem 2 2018", Data: "4$Sem 2 2018"}},
	}, plan.Keyboard)
	// Input is not reordered.
	r.Equal("Sem 2 2018", semesters[0])
}

func TestCourses(t *testing.T) {
	r := require.New(t)

	plan := Courses([]types.Course{{ID: 7, Name: "COMP2310"}, {ID: 12, Name: "MATH1013"}})
	r.Equal(types.Keyboard{
		{{Label: "COMP2310", Data: "1$7"}},
		{{Label: "MATH1013", Data: "1$12"}},
		{{Label: "🏠 Home", Data: "0"}},
	}, plan.Keyboard)

	plan = Courses(nil)
	r.Equal(types.Keyboard{{{Label: "🏠 Home", Data: "0"}}}, plan.Keyboard)
}

func TestCourseContents(t *testing.T) {
	r := require.New(t)

	course := types.Course{ID: 7, Name: "COMP2310 [Systems]"}
	files := []types.File{
		{Title: "Week 1", MessageID: "987", URL: deeplink("987")},
		{Title: "Syllabus", MessageID: types.NoArchiveMessage, URL: "https://example.com/syllabus.pdf"},
	}

	plan := CourseContents(course, files, false, deeplink)
	r.Equal([]string{
		"Files for [COMP2310 (Systems)](https://wattlecourses.anu.edu.au/course/view.php?id=7): \n" +
			"[Week 1](https://t.me/anuwattlefiles/987)\n" +
			"[Syllabus (external)](https://example.com/syllabus.pdf)\n",
	}, plan.Fragments)
	r.Equal(types.Keyboard{{{Label: "🏠 Home", Data: "0"}, {Label: "🔍 Courses", Data: "1"}}}, plan.Keyboard)

	course.URL = "https://example.com/comp2310"
	plan = CourseContents(course, files, true, deeplink)
	r.True(strings.HasPrefix(plan.Fragments[0], "Files for [COMP2310 (Systems)](https://example.com/comp2310): \n"))
	r.Equal(types.Button{Label: "🎞️ Videos", Data: "6$7"}, plan.Keyboard[0][2])

	plan = CourseContents(course, nil, false, deeplink)
	r.Equal([]string{"No files available yet."}, plan.Fragments)
}

func TestCourseContentsPagination(t *testing.T) {
	r := require.New(t)

	course := types.Course{ID: 7, Name: "COMP2310"}
	files := make([]types.File, 0, 200)
	for i := 0; i < 200; i++ {
		files = append(files, types.File{Title: fmt.Sprintf("Lecture %03d", i), MessageID: fmt.Sprint(1000 + i)})
	}

	plan := CourseContents(course, files, true, deeplink)
	r.Greater(len(plan.Fragments), 1)
	joined := strings.Join(plan.Fragments, "")
	for _, fragment := range plan.Fragments {
		r.LessOrEqual(utf8.RuneCountInString(fragment), MaxMessageLength)
	}
	// Nothing is lost.
	for _, file := range files {
		r.Contains(joined, fmt.Sprintf("[%s](%s)\n", file.Title, deeplink(file.MessageID)))
	}
}

func TestVideos(t *testing.T) {
	r := require.New(t)

	course := types.Course{ID: 7, Name: "COMP2310"}
	day := func(d int) time.Time { return time.Date(2018, 8, d, 0, 0, 0, 0, time.UTC) }
	multimedia := []types.Media{
		{Name: "Lecture 3", Date: day(3), PlayerURL: "https://p/3", MP4URL1: "https://a/3", MP4URL2: "https://b/3"},
		{Name: "Lecture 1", Date: day(1), PlayerURL: "https://p/1"},
		{Name: "Lecture 2", Date: day(2), PlayerURL: "https://p/2", MP4URL1: "https://a/2"},
	}

	plan := Videos(course, multimedia)
	r.Equal([]string{
		"Videos for [COMP2310](https://wattlecourses.anu.edu.au/course/view.php?id=7): \n" +
			"[Lecture 1](https://p/1)\n" +
			"[Lecture 2](https://p/2) ([mp4](https://a/2))\n" +
			"[Lecture 3](https://p/3) ([mp4](https://a/3)), ([mp4](https://b/3))\n",
	}, plan.Fragments)
	r.Equal(types.Keyboard{{
		{Label: "🏠 Home", Data: "0"},
		{Label: "🔍 Courses", Data: "1"},
		{Label: "📔 This course", Data: "1$7"},
	}}, plan.Keyboard)
	// Input is not reordered.
	r.Equal("Lecture 3", multimedia[0].Name)

	plan = Videos(course, nil)
	r.Equal([]string{"No videos uploaded yet."}, plan.Fragments)
}

func TestUploadDone(t *testing.T) {
	r := require.New(t)

	plan := UploadDone(
		types.Course{ID: 12, Name: "COMP2310"},
		types.File{Title: "Week 3 notes", URL: "https://t.me/anuwattlefiles/987"},
	)
	r.Equal([]string{"[COMP2310 - Week 3 notes](https://t.me/anuwattlefiles/987)"}, plan.Fragments)
	r.Equal(types.Keyboard{{{Label: "🏠 Home", Data: "0"}, {Label: "📔 This Course", Data: "1$12"}}}, plan.Keyboard)
}
