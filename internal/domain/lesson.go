package domain

// Level is a proficiency level on the ladder.
type Level string

// Default ladder levels
const (
	LevelBeginner          Level = "Beginner"
	LevelElementary        Level = "Elementary"
	LevelPreIntermediate   Level = "Pre-Intermediate"
	LevelIntermediate      Level = "Intermediate"
	LevelUpperIntermediate Level = "Upper-Intermediate"
	LevelAdvanced          Level = "Advanced"
)

// DefaultLadder returns the level order of the bundled curriculum.
func DefaultLadder() Ladder {
	return Ladder{
		LevelBeginner,
		LevelElementary,
		LevelPreIntermediate,
		LevelIntermediate,
		LevelUpperIntermediate,
		LevelAdvanced,
	}
}

// Ladder is the totally ordered sequence of levels.
type Ladder []Level

// Position returns the index of level in the ladder, or -1.
func (l Ladder) Position(level Level) int {
	for i, lv := range l {
		if lv == level {
			return i
		}
	}
	return -1
}

// Contains reports whether level is on the ladder.
func (l Ladder) Contains(level Level) bool {
	return l.Position(level) >= 0
}

// Next returns the level following the given one. ok is false at the top of
// the ladder or when level is not on it.
func (l Ladder) Next(level Level) (next Level, ok bool) {
	pos := l.Position(level)
	if pos < 0 || pos+1 >= len(l) {
		return "", false
	}
	return l[pos+1], true
}

// Lesson is an immutable curriculum entry
type Lesson struct {
	Level       Level
	Index       int // 0-based position within the level
	Title       string
	Explanation string
	Examples    []string
	TaskText    string
	// AcceptanceKeywords are lowercase substrings used to score answers.
	AcceptanceKeywords []string
}

// Number returns the 1-based lesson number shown to learners.
func (l *Lesson) Number() int {
	return l.Index + 1
}
