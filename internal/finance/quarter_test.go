package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentQuarter(t *testing.T) {
	cases := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1}, {time.March, 1},
		{time.April, 2}, {time.June, 2},
		{time.July, 3}, {time.September, 3},
		{time.October, 4}, {time.December, 4},
	}
	for _, tc := range cases {
		now := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, Period{Year: 2025, Quarter: tc.want}, CurrentQuarter(now), tc.month.String())
	}
}

func TestPreviousRollsOverYear(t *testing.T) {
	assert.Equal(t, Period{2023, 4}, Period{2024, 1}.Previous())
	assert.Equal(t, Period{2024, 2}, Period{2024, 3}.Previous())
	assert.Equal(t, Period{2023, 3}, Period{2024, 1}.Previous().Previous())
}

func TestPreviousWalksEightQuarters(t *testing.T) {
	p := Period{2025, 2}
	var got []string
	for i := 0; i < 8; i++ {
		got = append(got, p.String())
		p = p.Previous()
	}
	assert.Equal(t, []string{
		"2025 Q2", "2025 Q1", "2024 Q4", "2024 Q3",
		"2024 Q2", "2024 Q1", "2023 Q4", "2023 Q3",
	}, got)
}
