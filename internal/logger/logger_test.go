package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "loud", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMiddlewareLogsReactionEvent(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", true)

	called := false
	handler := Middleware(log, func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
		called = true
	})

	handler(nil, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    "1",
		MessageID: "2",
		ChannelID: "3",
		GuildID:   "4",
		Emoji:     discordgo.Emoji{Name: "⭐"},
	}})

	if !called {
		t.Fatal("wrapped handler was not called")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if first["msg"] != "Processing event" || first["event_type"] != "reaction_add" || first["message_id"] != "2" || first["emoji"] != "⭐" {
		t.Errorf("unexpected first entry: %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if _, ok := second["duration"]; !ok {
		t.Errorf("second entry missing duration: %v", second)
	}
}

func TestMiddlewareRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info", false)

	handler := Middleware(log, func(*discordgo.Session, *discordgo.Ready) {})
	handler(nil, &discordgo.Ready{})

	if buf.Len() != 0 {
		t.Errorf("debug entries written at info level: %s", buf.String())
	}
}
