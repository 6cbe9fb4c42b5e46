package server

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/deepin-community/fprintd/internal/device"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderMarkdown converts markdown text to HTML (safe to inject as template.HTML).
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	_ = md.Convert([]byte(src), &buf)
	return template.HTML(buf.String())
}

type statusPage struct {
	Report      template.HTML
	Subscribers int
	Generated   string
}

// StatusReport describes every device as markdown.
func StatusReport(states []device.State) string {
	var b strings.Builder
	b.WriteString("# Devices\n\n")
	if len(states) == 0 {
		b.WriteString("_No devices._\n")
		return b.String()
	}
	b.WriteString("| Path | Name | Scan | Stages | Claimed by | Action | Script |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, st := range states {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %d | %s | %s | %d |\n",
			st.Path, escapeCell(st.Properties.Name), st.Properties.ScanType, st.Properties.NumEnrollStages,
			orDash(st.ClaimedUser), orDash(string(st.Action)), st.ScriptPending)
	}
	for _, st := range states {
		fmt.Fprintf(&b, "\n## %s\n\n", escapeCell(st.Properties.Name))
		fmt.Fprintf(&b, "- finger present: %t\n- finger needed: %t\n- identification: %t\n",
			st.Properties.FingerPresent, st.Properties.FingerNeeded, st.HasIdentification)
		if st.SelectedFinger != "" {
			fmt.Fprintf(&b, "- selected finger: %s\n", st.SelectedFinger)
		}
		users := make([]string, 0, len(st.Enrolled))
		for u := range st.Enrolled {
			users = append(users, u)
		}
		sort.Strings(users)
		if len(users) == 0 {
			b.WriteString("\nNo enrolled prints.\n")
			continue
		}
		b.WriteString("\n| User | Fingers |\n|---|---|\n")
		for _, u := range users {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(u), orDash(strings.Join(st.Enrolled[u], ", ")))
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
