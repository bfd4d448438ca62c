package player

import "fmt"

// maxLogLines bounds the game log kept per game.
const maxLogLines = 70

// gameLog keeps the newest line first, each prefixed with the turn it
// was written on.
type gameLog struct {
	lines []string
}

func (l *gameLog) add(turn int, msg string) {
	line := fmt.Sprintf("[%03d] %s", turn, msg)
	l.lines = append([]string{line}, l.lines...)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[:maxLogLines]
	}
}

// reset replaces the log with lines as restored from a save.
func (l *gameLog) reset(lines []string) {
	if len(lines) > maxLogLines {
		lines = lines[:maxLogLines]
	}
	l.lines = append([]string(nil), lines...)
}

func (l *gameLog) snapshot() []string {
	return append([]string(nil), l.lines...)
}
