package views

import (
	"strings"
	"testing"
)

func TestRenderCommandPaletteHiddenWhenInactive(t *testing.T) {
	if got := RenderCommandPalette(false, "/event add"); got != "" {
		t.Fatalf("expected empty palette, got %q", got)
	}
	if got := RenderCommandPalette(true, "/event add"); !strings.Contains(got, "/event add") {
		t.Fatalf("palette does not show input: %q", got)
	}
}

func TestRenderCalendarPanelShowsSelection(t *testing.T) {
	out := RenderCalendarPanel(CalendarPanelData{
		Mode:  "week",
		Range: "2026-03-02 - 2026-03-08",
		Selected: &AgendaItemData{
			ID:       "abc",
			Date:     "2026-03-03",
			Time:     "09:00-10:00",
			Title:    "Standup",
			Location: "Room 1",
			Source:   "calendar",
		},
	})
	for _, want := range []string{"week view", "Standup", "Room 1", "source: calendar", "id: abc"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderCalendarPanelEmpty(t *testing.T) {
	out := RenderCalendarPanel(CalendarPanelData{Mode: "day"})
	if !strings.Contains(out, "(agenda empty)") {
		t.Fatalf("expected empty marker, got:\n%s", out)
	}
}

func TestRenderInsightsPanelListsConflicts(t *testing.T) {
	out := RenderInsightsPanel(InsightsPanelData{
		Conflicts:   []ConflictData{{First: "A", Second: "B", Overlap: "30m0s"}},
		FreeMinutes: 60,
		Suggestion:  "Tue 14:00",
		Confidence:  "high",
	})
	for _, want := range []string{"conflicts: 1", "- A / B (30m0s)", "- none", "Tue 14:00 [high]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderRepeatEditor(t *testing.T) {
	if RenderRepeatEditor(RepeatEditorData{}) != "" {
		t.Fatal("inactive editor should render nothing")
	}
	out := RenderRepeatEditor(RepeatEditorData{
		Active:       true,
		TaskTitle:    "Water plants",
		Frequency:    "weekly",
		IntervalText: "2",
		Preview:      []string{"Mon 2026-03-16"},
	})
	for _, want := range []string{"repeat: Water plants", "frequency: weekly", "interval: 2", "- Mon 2026-03-16"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderNotificationSkipsEmptyBody(t *testing.T) {
	if RenderNotification("info", "x", "  ") != "" {
		t.Fatal("expected empty notification")
	}
	if got := RenderNotification("info", "Reminder", "Standup in 5 min"); !strings.Contains(got, "[INFO] Reminder: Standup in 5 min") {
		t.Fatalf("unexpected notification %q", got)
	}
}
