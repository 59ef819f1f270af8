package finance

import (
	"fmt"
	"time"
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Period is a fiscal (year, quarter) pair. Quarter is in [1,4].
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// CurrentQuarter maps months 1-3 to Q1 through 10-12 to Q4.
func CurrentQuarter(now time.Time) Period {
	return Period{Year: now.Year(), Quarter: (int(now.Month())-1)/3 + 1}
}

// Previous steps one quarter back, rolling Q1 over to Q4 of the prior year.
func (p Period) Previous() Period {
	if p.Quarter == 1 {
		return Period{Year: p.Year - 1, Quarter: 4}
	}
	return Period{Year: p.Year, Quarter: p.Quarter - 1}
}

func (p Period) String() string {
	return fmt.Sprintf("%d Q%d", p.Year, p.Quarter)
}
