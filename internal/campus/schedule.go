package campus

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultDuration is the event length in minutes when none is given.
const DefaultDuration = 60

// Event is one personal schedule entry.
type Event struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Event     string `json:"event"`
	Duration  int    `json:"duration"`
	CreatedAt string `json:"created_at"`
}

// ScheduleStore keeps events in schedule.json.
type ScheduleStore struct {
	path string
	now  func() time.Time
}

// NewScheduleStore opens the schedule in dataDir. A nil now uses time.Now.
func NewScheduleStore(dataDir string, now func() time.Time) *ScheduleStore {
	return &ScheduleStore{path: filepath.Join(dataDir, ScheduleFile), now: nowOr(now)}
}

func (s *ScheduleStore) load() ([]Event, error) {
	var events []Event
	if _, err := loadJSON(s.path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Add stores a new event and returns it with its id.
func (s *ScheduleStore) Add(date, clock, event string, duration int) (Event, error) {
	now := s.now()
	day, err := ResolveDate(date, now)
	if err != nil {
		return Event{}, err
	}
	if clock, err = normClock(clock); err != nil {
		return Event{}, err
	}
	if strings.TrimSpace(event) == "" {
		return Event{}, invalidf("event must not be empty")
	}
	if duration <= 0 {
		duration = DefaultDuration
	}

	events, err := s.load()
	if err != nil {
		return Event{}, err
	}
	e := Event{
		ID:        nextEventID(events),
		Date:      day,
		Time:      clock,
		Event:     strings.TrimSpace(event),
		Duration:  duration,
		CreatedAt: now.Format(TimestampLayout),
	}
	events = append(events, e)
	return e, saveJSON(s.path, events)
}

// Query returns the events on date ordered by start time. timeRange is
// optional "HH:MM-HH:MM"; an event matches when it starts inside it.
func (s *ScheduleStore) Query(date, timeRange string) ([]Event, error) {
	day, err := ResolveDate(date, s.now())
	if err != nil {
		return nil, err
	}
	var from, to string
	if timeRange != "" {
		a, b, ok := strings.Cut(timeRange, "-")
		if !ok {
			return nil, invalidf("time range %q is not HH:MM-HH:MM", timeRange)
		}
		if from, err = normClock(strings.TrimSpace(a)); err != nil {
			return nil, err
		}
		if to, err = normClock(strings.TrimSpace(b)); err != nil {
			return nil, err
		}
	}

	events, err := s.load()
	if err != nil {
		return nil, err
	}
	out := []Event{}
	for _, e := range events {
		if e.Date != day {
			continue
		}
		if timeRange != "" && (e.Time < from || e.Time > to) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b Event) int { return strings.Compare(a.Time, b.Time) })
	return out, nil
}

// Delete removes the event with id.
func (s *ScheduleStore) Delete(id int) error {
	events, err := s.load()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(events), func(e Event) bool { return e.ID == id })
	if len(kept) == len(events) {
		return ErrNotFound
	}
	return saveJSON(s.path, kept)
}

// Update changes the start time and/or description of an event. Empty
// values are left unchanged.
func (s *ScheduleStore) Update(id int, clock, event string) (Event, error) {
	if clock != "" {
		var err error
		if clock, err = normClock(clock); err != nil {
			return Event{}, err
		}
	}
	events, err := s.load()
	if err != nil {
		return Event{}, err
	}
	i := slices.IndexFunc(events, func(e Event) bool { return e.ID == id })
	if i < 0 {
		return Event{}, ErrNotFound
	}
	if clock != "" {
		events[i].Time = clock
	}
	if event = strings.TrimSpace(event); event != "" {
		events[i].Event = event
	}
	return events[i], saveJSON(s.path, events)
}

func nextEventID(events []Event) int {
	id := 0
	for _, e := range events {
		id = max(id, e.ID)
	}
	return id + 1
}
