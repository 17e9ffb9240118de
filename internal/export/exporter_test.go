package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrisedwards/slackmanager/internal/manager"
)

type fakeSource struct {
	history map[string][]manager.Message
	queries []manager.HistoryQuery
}

func (f *fakeSource) GetMessages(_ context.Context, channel string, q manager.HistoryQuery) []manager.Message {
	f.queries = append(f.queries, q)
	return append([]manager.Message(nil), f.history[channel]...)
}

func msgAt(t time.Time, user, text string) manager.Message {
	return manager.Message{Time: t, Username: user, Text: text}
}

func TestNewExporter_RequiresOutputDir(t *testing.T) {
	if _, err := NewExporter(&fakeSource{}, "", time.UTC, nil); err == nil {
		t.Error("NewExporter() should fail without an output directory")
	}
}

func TestExport_WritesDatedFiles(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{history: map[string][]manager.Message{
		"general": {
			msgAt(day.Add(9*time.Hour), "alice", "morning"),
			msgAt(day.Add(17*time.Hour+30*time.Minute), "bob", "evening\nsecond line"),
			msgAt(day.Add(25*time.Hour), "carol", "next day"),
		},
		"quiet": nil,
	}}

	e, err := NewExporter(src, dir, time.UTC, nil)
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	if e.OutputDir() != dir {
		t.Errorf("OutputDir() = %q, want %q", e.OutputDir(), dir)
	}

	results, err := e.Export(context.Background(), []string{"general", "quiet"}, "2026-01-22")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Export() wrote %d files, want 1", len(results))
	}
	if results[0].Messages != 2 {
		t.Errorf("Messages = %d, want 2", results[0].Messages)
	}

	want := filepath.Join(dir, "2026-01-22", "general.md")
	if results[0].Path != want {
		t.Errorf("Path = %q, want %q", results[0].Path, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	for _, part := range []string{"# #general, 2026-01-22", "- **09:00** alice: morning", "- **17:30** bob: evening\n  second line"} {
		if !strings.Contains(content, part) {
			t.Errorf("file missing %q:\n%s", part, content)
		}
	}
	if strings.Contains(content, "next day") {
		t.Error("message from the next day should be excluded")
	}

	if _, err := os.Stat(filepath.Join(dir, "2026-01-22", "quiet.md")); !os.IsNotExist(err) {
		t.Error("channel without messages should get no file")
	}

	if !src.queries[0].Since.Equal(day) {
		t.Errorf("query Since = %v, want %v", src.queries[0].Since, day)
	}
}

func TestExport_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 03:00 UTC on the 23rd is 22:00 on the 22nd in New York.
	src := &fakeSource{history: map[string][]manager.Message{
		"general": {msgAt(time.Date(2026, 1, 23, 3, 0, 0, 0, time.UTC), "alice", "late")},
	}}
	e, _ := NewExporter(src, t.TempDir(), loc, nil)

	results, err := e.Export(context.Background(), []string{"general"}, "2026-01-22")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Export() wrote %d files, want 1", len(results))
	}
	data, _ := os.ReadFile(results[0].Path)
	if !strings.Contains(string(data), "**22:00**") {
		t.Errorf("time should be rendered in the export timezone:\n%s", data)
	}
}

func TestExport_InvalidDate(t *testing.T) {
	e, _ := NewExporter(&fakeSource{}, t.TempDir(), time.UTC, nil)
	if _, err := e.Export(context.Background(), []string{"general"}, "not-a-date"); err == nil {
		t.Error("Export() should reject an invalid date")
	}
}

func TestExport_Cancelled(t *testing.T) {
	e, _ := NewExporter(&fakeSource{}, t.TempDir(), time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Export(ctx, []string{"general"}, "2026-01-22"); err == nil {
		t.Error("Export() should stop on a cancelled context")
	}
}

func TestFormatMarkdown_Starred(t *testing.T) {
	m := msgAt(time.Date(2026, 1, 22, 8, 5, 0, 0, time.UTC), "alice", "pinned")
	m.IsStarred = true
	got := FormatMarkdown("general", "2026-01-22", []manager.Message{m}, time.UTC)
	if !strings.Contains(got, "- **08:05** alice ⭐: pinned") {
		t.Errorf("FormatMarkdown() = %q", got)
	}
}
