package speedrun

import (
	"fmt"
	"strings"
	"time"
)

// Run is a verified leaderboard submission.
type Run struct {
	ID          string
	GameID      string
	Weblink     string
	Category    string
	Players     []string
	PrimaryTime time.Duration
	VerifiedAt  time.Time
}

// FormatAnnouncement renders the chat message announcing r.
func FormatAnnouncement(r Run) string {
	players := "unknown runner"
	if len(r.Players) > 0 {
		players = strings.Join(r.Players, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏁 New verified run: **%s** in %s by %s", r.Category, FormatDuration(r.PrimaryTime), players)
	if r.Weblink != "" {
		b.WriteString("\n")
		b.WriteString(r.Weblink)
	}
	return b.String()
}
