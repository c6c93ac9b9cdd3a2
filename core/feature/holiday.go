package feature

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

const dateLayout = "2006-01-02"

// Calendar is a set of civil dates treated as holidays. The zero value is
// an empty calendar, which degrades the holiday feature to always false.
type Calendar struct {
	days map[string]struct{}
}

// NewCalendar builds a calendar from concrete dates.
func NewCalendar(dates ...time.Time) Calendar {
	c := Calendar{days: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		c.days[d.Format(dateLayout)] = struct{}{}
	}
	return c
}

// CalendarFromStrings parses a calendar from YYYY-MM-DD dates.
func CalendarFromStrings(dates []string) (Calendar, error) {
	c := Calendar{days: make(map[string]struct{}, len(dates))}
	for _, raw := range dates {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Calendar{}, model.NewConfigError("holidays", fmt.Sprintf("invalid date %q", raw))
		}
		c.days[d.Format(dateLayout)] = struct{}{}
	}
	return c, nil
}

// LoadCalendarFile reads a YAML file with a top-level "holidays" list of
// YYYY-MM-DD dates.
func LoadCalendarFile(path string) (Calendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Calendar{}, model.NewConfigError("holidays.path", err.Error())
	}
	var doc struct {
		Holidays []string `yaml:"holidays"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Calendar{}, model.NewConfigError("holidays.path", err.Error())
	}
	return CalendarFromStrings(doc.Holidays)
}

// Contains reports whether ts falls on a holiday, with the civil date taken
// in loc (UTC when nil).
func (c Calendar) Contains(ts time.Time, loc *time.Location) bool {
	if len(c.days) == 0 {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	_, ok := c.days[ts.In(loc).Format(dateLayout)]
	return ok
}

// Dates returns the calendar's dates sorted ascending.
func (c Calendar) Dates() []string {
	out := make([]string, 0, len(c.days))
	for d := range c.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of holiday dates.
func (c Calendar) Len() int { return len(c.days) }
