package campus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Data file names inside the data directory.
const (
	ScheduleFile = "schedule.json"
	BudgetFile   = "budget.json"
	CourseFile   = "courses.json"
	MemoryFile   = "memory.db"
)

// Layouts used in stored records.
const (
	DateLayout      = "2006-01-02"
	MonthLayout     = "2006-01"
	ClockLayout     = "15:04"
	TimestampLayout = "2006-01-02 15:04:05"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("not found")

	// ErrInvalid marks arguments that fail validation.
	ErrInvalid = errors.New("invalid argument")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// loadJSON decodes path into v. A missing or corrupt file leaves v
// untouched and reports ok=false.
func loadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// saveJSON writes v to path through a temporary file and a rename.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ResolveDate turns "today", "tomorrow" or a YYYY-MM-DD date into a
// YYYY-MM-DD date relative to now.
func ResolveDate(s string, now time.Time) (string, error) {
	t, err := ParseDate(s, now)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// ParseDate is ResolveDate returning the calendar day.
func ParseDate(s string, now time.Time) (time.Time, error) {
	switch s {
	case "today":
		return now, nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, invalidf("date %q is not YYYY-MM-DD, today or tomorrow", s)
	}
	return t, nil
}

// normClock validates an HH:MM time and returns it zero-padded so stored
// times sort lexically.
func normClock(s string) (string, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", invalidf("time %q is not HH:MM", s)
	}
	return t.Format(ClockLayout), nil
}

func nowOr(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
