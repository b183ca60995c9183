package campus

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Course is one weekly timetable slot. Weekday counts from Monday = 0.
type Course struct {
	Weekday  int    `json:"weekday"`
	Time     string `json:"time"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// DefaultCourses seeds a new timetable.
var DefaultCourses = []Course{
	{Weekday: 0, Time: "08:00-09:40", Name: "高等数学", Location: "A301"},
	{Weekday: 0, Time: "14:00-15:40", Name: "大学物理", Location: "B102"},
	{Weekday: 1, Time: "10:00-11:40", Name: "线性代数", Location: "A205"},
	{Weekday: 2, Time: "08:00-09:40", Name: "大学英语", Location: "C303"},
	{Weekday: 2, Time: "14:00-15:40", Name: "计算机导论", Location: "D401"},
	{Weekday: 3, Time: "14:00-15:40", Name: "体育(篮球)", Location: "体育馆"},
	{Weekday: 4, Time: "08:00-11:40", Name: "Python程序设计", Location: "机房5"},
}

// WeekdayNames are the timetable's labels, indexed from Monday.
var WeekdayNames = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

var weekdayAliases = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
	"周一": 0, "周二": 1, "周三": 2, "周四": 3, "周五": 4, "周六": 5, "周日": 6,
	"星期一": 0, "星期二": 1, "星期三": 2, "星期四": 3, "星期五": 4, "星期六": 5, "星期日": 6,
	"周天": 6, "星期天": 6,
}

// CourseStore reads the timetable from courses.json, writing the default
// timetable on first use.
type CourseStore struct {
	path string
	now  func() time.Time
}

// NewCourseStore opens the timetable in dataDir. A nil now uses time.Now.
func NewCourseStore(dataDir string, now func() time.Time) *CourseStore {
	return &CourseStore{path: filepath.Join(dataDir, CourseFile), now: nowOr(now)}
}

// Courses returns the whole timetable.
func (s *CourseStore) Courses() ([]Course, error) {
	var courses []Course
	ok, err := loadJSON(s.path, &courses)
	if err != nil {
		return nil, err
	}
	if !ok {
		courses = slices.Clone(DefaultCourses)
		if err := saveJSON(s.path, courses); err != nil {
			return nil, err
		}
	}
	return courses, nil
}

// ParseWeekday accepts an English or Chinese day name or a number 1-7
// (Monday = 1) and returns the Monday-based index.
func ParseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayAliases[s]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 7 {
		return n - 1, nil
	}
	return 0, invalidf("weekday %q is not a day name or 1-7", s)
}

// mondayIndex converts a time.Weekday to the Monday-based index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Query returns the day label and the courses on that day ordered by
// time. weekday wins over date; with neither, today is used.
func (s *CourseStore) Query(date, weekday string) (string, []Course, error) {
	var day int
	switch {
	case weekday != "":
		d, err := ParseWeekday(weekday)
		if err != nil {
			return "", nil, err
		}
		day = d
	default:
		if date == "" {
			date = "today"
		}
		t, err := ParseDate(date, s.now())
		if err != nil {
			return "", nil, err
		}
		day = mondayIndex(t.Weekday())
	}

	courses, err := s.Courses()
	if err != nil {
		return "", nil, err
	}
	out := []Course{}
	for _, c := range courses {
		if c.Weekday == day {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b Course) int { return strings.Compare(a.Time, b.Time) })
	return WeekdayNames[day], out, nil
}
