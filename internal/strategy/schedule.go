package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Hourly  Frequency = "hourly"
)

var frequencyHours = map[Frequency]int{
	Hourly:  1,
	Daily:   24,
	Weekly:  168,
	Monthly: 720,
}

// FrequencyHours maps a DCA frequency to its interval in hours, defaulting
// to a day.
func FrequencyHours(freq string) int {
	if h, ok := frequencyHours[Frequency(strings.ToLower(strings.TrimSpace(freq)))]; ok {
		return h
	}
	return 24
}

var weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Schedule is the structured form of a DCA duration: how often to buy and
// at what time.
type Schedule struct {
	Type     Frequency `json:"type"`
	Time     string    `json:"time,omitempty"`
	Meridiem string    `json:"meridiem,omitempty"`
	Days     []string  `json:"days,omitempty"`
	Date     int       `json:"date,omitempty"`
	Hours    int       `json:"hours,omitempty"`
}

var clock12 = regexp.MustCompile(`^(0?[1-9]|1[0-2]):[0-5]\d$`)

func (s Schedule) normalized() Schedule {
	s.Type = Frequency(strings.ToLower(strings.TrimSpace(string(s.Type))))
	s.Time = strings.TrimSpace(s.Time)
	if s.Time == "" {
		s.Time = "12:00"
	}
	s.Meridiem = strings.ToUpper(strings.TrimSpace(s.Meridiem))
	if s.Meridiem == "" {
		s.Meridiem = "AM"
	}
	days := lo.Map(s.Days, func(d string, _ int) string {
		d = strings.ToLower(strings.TrimSpace(d))
		if len(d) > 3 {
			d = d[:3]
		}
		return d
	})
	s.Days = lo.Uniq(lo.Compact(days))
	return s
}

func (s Schedule) Validate() error {
	s = s.normalized()
	if _, ok := frequencyHours[s.Type]; !ok {
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}
	if s.Type == Hourly {
		if s.Hours < 1 || s.Hours > 23 {
			return fmt.Errorf("hours must be between 1 and 23")
		}
		return nil
	}
	if !clock12.MatchString(s.Time) {
		return fmt.Errorf("time must be hh:mm on a 12-hour clock")
	}
	if s.Meridiem != "AM" && s.Meridiem != "PM" {
		return fmt.Errorf("meridiem must be AM or PM")
	}
	switch s.Type {
	case Weekly:
		if len(s.Days) == 0 {
			return fmt.Errorf("weekly schedule needs at least one day")
		}
		for _, d := range s.Days {
			if !lo.Contains(weekdays, d) {
				return fmt.Errorf("unknown weekday %q", d)
			}
		}
	case Monthly:
		if s.Date < 1 || s.Date > 31 {
			return fmt.Errorf("date must be between 1 and 31")
		}
	}
	return nil
}

// String renders the canonical schedule text, e.g. "weekly mon,wed 09:30 AM".
func (s Schedule) String() string {
	s = s.normalized()
	switch s.Type {
	case Hourly:
		return fmt.Sprintf("hourly every %dh", s.Hours)
	case Weekly:
		return fmt.Sprintf("weekly %s %s %s", strings.Join(sortedDays(s.Days), ","), padClock(s.Time), s.Meridiem)
	case Monthly:
		return fmt.Sprintf("monthly %d %s %s", s.Date, padClock(s.Time), s.Meridiem)
	default:
		return fmt.Sprintf("%s %s %s", s.Type, padClock(s.Time), s.Meridiem)
	}
}

// ParseSchedule reads the text produced by Schedule.String.
func ParseSchedule(text string) (Schedule, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(parts) == 0 {
		return Schedule{}, fmt.Errorf("schedule is empty")
	}
	s := Schedule{Type: Frequency(parts[0])}
	rest := parts[1:]
	switch s.Type {
	case Hourly:
		if len(rest) != 2 || rest[0] != "every" || !strings.HasSuffix(rest[1], "h") {
			return Schedule{}, fmt.Errorf("hourly schedule must look like \"hourly every 4h\"")
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rest[1], "h"))
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid hours %q", rest[1])
		}
		s.Hours = n
	case Weekly:
		if len(rest) != 3 {
			return Schedule{}, fmt.Errorf("weekly schedule must look like \"weekly mon,wed 09:30 AM\"")
		}
		s.Days = strings.Split(rest[0], ",")
		s.Time, s.Meridiem = rest[1], rest[2]
	case Monthly:
		if len(rest) != 3 {
			return Schedule{}, fmt.Errorf("monthly schedule must look like \"monthly 15 09:30 AM\"")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid date %q", rest[0])
		}
		s.Date = n
		s.Time, s.Meridiem = rest[1], rest[2]
	case Daily:
		if len(rest) != 2 {
			return Schedule{}, fmt.Errorf("daily schedule must look like \"daily 09:30 AM\"")
		}
		s.Time, s.Meridiem = rest[0], rest[1]
	default:
		return Schedule{}, fmt.Errorf("unknown schedule type %q", parts[0])
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s.normalized(), nil
}

func sortedDays(days []string) []string {
	return lo.Filter(weekdays, func(w string, _ int) bool {
		return lo.Contains(days, w)
	})
}

func padClock(t string) string {
	if len(t) == 4 {
		return "0" + t
	}
	return t
}
