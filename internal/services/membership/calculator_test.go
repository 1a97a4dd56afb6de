package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 20)
	past := now.AddDate(0, 0, -1)

	tests := []struct {
		name      string
		latestEnd *time.Time
		days      int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "no prior payment starts now",
			days:      30,
			wantStart: now,
			wantEnd:   now.AddDate(0, 0, 30),
		},
		{
			name:      "future end stacks",
			latestEnd: &future,
			days:      30,
			wantStart: future,
			wantEnd:   future.AddDate(0, 0, 30),
		},
		{
			name:      "expired end starts now",
			latestEnd: &past,
			days:      7,
			wantStart: now,
			wantEnd:   now.AddDate(0, 0, 7),
		},
		{
			name:      "end equal to now does not stack",
			latestEnd: &now,
			days:      1,
			wantStart: now,
			wantEnd:   now.AddDate(0, 0, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(tt.latestEnd, now, tt.days)
			assert.True(t, tt.wantStart.Equal(w.Start), "start: want %s got %s", tt.wantStart, w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end: want %s got %s", tt.wantEnd, w.End)
		})
	}
}

// Оплата через 10 дней после первой продлевает окно от конца первого.
func TestCalculator_StackingScenario(t *testing.T) {
	confirm := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := confirm
	c := NewCalculator(func() time.Time { return clock })

	first := c.WindowAt(nil, 30)
	assert.True(t, first.End.Equal(confirm.AddDate(0, 0, 30)))

	clock = confirm.AddDate(0, 0, 10)
	second := c.WindowAt(&first.End, 30)
	assert.True(t, second.Start.Equal(confirm.AddDate(0, 0, 30)))
	assert.True(t, second.End.Equal(confirm.AddDate(0, 0, 60)))
}
