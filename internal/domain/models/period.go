// internal/domain/models/period.go
package models

import (
	"fmt"
	"time"
)

// MonthLayout is the YYYY-MM form used for period keys and settings.
const MonthLayout = "2006-01"

// Period is one calendar month in UTC. Start is the first instant of the
// first day; End is midnight of the last day.
type Period struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// MonthOf returns the calendar-month period containing t.
func MonthOf(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseMonth parses a YYYY-MM string into its period.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return MonthOf(t), nil
}

// Key returns the YYYY-MM form of the period.
func (p Period) Key() string {
	return p.Start.Format(MonthLayout)
}

// Previous returns the month immediately before p.
func (p Period) Previous() Period {
	return MonthOf(p.Start.AddDate(0, -1, 0))
}

// Next returns the month immediately after p.
func (p Period) Next() Period {
	return MonthOf(p.Start.AddDate(0, 1, 0))
}

func (p Period) String() string {
	return p.Key()
}
