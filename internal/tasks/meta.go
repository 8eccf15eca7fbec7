package tasks

import "time"

const dayLayout = time.DateOnly

// Meta is the gamification record kept next to the task list.
type Meta struct {
	XP                int    `json:"xp"`
	Level             int    `json:"level"`
	Streak            int    `json:"streak"`
	BestStreak        int    `json:"bestStreak"`
	LastCompletionDay string `json:"lastCompletionDay,omitempty"`
	CompletedCount    int    `json:"completedCount"`
}

func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}

// LevelProgress is the fraction of the way to the next level.
func (m Meta) LevelProgress() float64 {
	return float64(m.XP%100) / 100
}

func (m *Meta) addXP(points int) {
	m.XP += points
	m.Level = LevelFor(m.XP)
}

// recordCompletion updates the day streak: same day is a no-op, yesterday
// extends it, anything else restarts it at 1.
func (m *Meta) recordCompletion(now time.Time) {
	today := now.Format(dayLayout)
	switch m.LastCompletionDay {
	case today:
		return
	case now.AddDate(0, 0, -1).Format(dayLayout):
		m.Streak++
	default:
		m.Streak = 1
	}
	m.LastCompletionDay = today
	if m.Streak > m.BestStreak {
		m.BestStreak = m.Streak
	}
}

// CurrentStreak is the streak as seen at now; it reads 0 once a full day
// has passed without a completion.
func (m Meta) CurrentStreak(now time.Time) int {
	switch m.LastCompletionDay {
	case now.Format(dayLayout), now.AddDate(0, 0, -1).Format(dayLayout):
		return m.Streak
	default:
		return 0
	}
}
