package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/schedule"
)

const timeLayout = "2006-01-02 15:04"

func formatSchedules(list []*schedule.Due) string {
	if len(list) == 0 {
		return "No schedules yet."
	}
	var sb strings.Builder
	sb.WriteString("<b>Schedules</b>\n")
	for _, s := range list {
		state := "active"
		if !s.IsActive {
			state = "paused"
		}
		if s.Status == schedule.StatusFailed {
			state = "failed"
		}
		fmt.Fprintf(&sb, "\n#%d <b>%s</b> · %s · %s\nnext: %s",
			s.ID, html.EscapeString(s.TemplateName), interval.Display(s.Frequency), state, s.NextRun.Format(timeLayout))
		if s.Topic != "" {
			fmt.Fprintf(&sb, "\ntopic: %s", html.EscapeString(s.Topic))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatRuns(frequency string, runs []time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Next runs for %s:", interval.Display(interval.Frequency(frequency)))
	for i, r := range runs {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, r.Format("Mon "+timeLayout))
	}
	return sb.String()
}

func formatIntervals() string {
	names := make([]string, 0, len(interval.Definitions()))
	for _, d := range interval.Definitions() {
		names = append(names, string(d.Name))
	}
	return "Available: " + strings.Join(names, ", ")
}
