package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"repnote/internal/config"
	"repnote/internal/domain"
	"repnote/internal/reconcile"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#8BE9FD"})
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	finishedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	dueStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"})
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	paneStyle     = lipgloss.NewStyle().Padding(0, 1)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("repnote"))
	b.WriteString("\n\n")

	notes := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(m.renderTopics()),
		paneStyle.Render(m.renderSubjects()),
		paneStyle.Render(m.renderContent()),
	)
	b.WriteString(notes)
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(m.renderCategories()),
		paneStyle.Render(m.renderTasks()),
	))

	b.WriteString("\n---\n")
	if m.mode == modeInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func (m Model) header(p pane, title string) string {
	if m.pane == p {
		return activeStyle.Render(title)
	}
	return headerStyle.Render(title)
}

// line renders one list entry, highlighting it when it sits under the cursor
// of the focused pane.
func (m Model) line(p pane, i int, text string) string {
	if m.pane == p && m.cursor[p] == i && m.mode == modeList {
		return cursorStyle.Render("> " + text)
	}
	return "  " + text
}

func (m Model) renderTopics() string {
	var b strings.Builder
	b.WriteString(m.header(paneTopics, "Topics"))
	b.WriteString("\n")
	if len(m.topics) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, t := range m.topics {
		b.WriteString(m.line(paneTopics, i, t.Icon+" "+t.Name))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSubjects() string {
	var b strings.Builder
	b.WriteString(m.header(paneSubjects, "Subjects"))
	b.WriteString("\n")
	if len(m.subjects) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, s := range m.subjects {
		text := fmt.Sprintf("%s %s  %s %s", s.Icon, s.Name,
			emptyPlaceholder(domain.Deref(s.EarliestDate)), domain.Deref(s.EarliestCode))
		b.WriteString(m.line(paneSubjects, i, strings.TrimRight(text, " ")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderContent() string {
	var b strings.Builder
	v := m.deps.Reconciler.View()
	loaded := m.deps.Reconciler.Selection().Loaded
	title := "Content"
	if loaded {
		title = fmt.Sprintf("%s / %s", v.Topic, v.Subject)
	}
	b.WriteString(m.header(paneContent, title))
	b.WriteString("\n")
	if !loaded {
		b.WriteString("  Open a subject to see its discussions.\n")
		return b.String()
	}
	b.WriteString(statusStyle.Render(describeFilters(v.Filters, v.Sort)))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString("  (no discussions)\n")
	}
	today := m.deps.Reconciler.Today()
	for i, r := range m.rows {
		b.WriteString(m.line(paneContent, i, renderRow(r, today)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRow(r reconcile.Row, today string) string {
	var prefix string
	switch {
	case r.ID.Type == domain.KindPoint:
		prefix = "    - "
	case !r.HasPoints:
		prefix = fmt.Sprintf("%3d.  ", r.Number)
	case r.Expanded:
		prefix = fmt.Sprintf("%3d.v ", r.Number)
	default:
		prefix = fmt.Sprintf("%3d.> ", r.Number)
	}
	meta := strings.TrimSpace(fmt.Sprintf("%s %s", r.DisplayDate, r.Code))
	if meta != "" {
		meta = "  [" + meta + "]"
	}
	text := r.Text + meta
	switch {
	case r.Finished:
		text = finishedStyle.Render(text)
	case !r.HasPoints && r.Date != "" && r.Date <= today:
		text = dueStyle.Render(text)
	}
	return prefix + text
}

func describeFilters(f reconcile.Filters, s reconcile.SortState) string {
	dir := "asc"
	if s.Descending {
		dir = "desc"
	}
	out := fmt.Sprintf("dates: %s  sort: %s %s", f.Date, s.Column, dir)
	if f.Query != "" {
		out += fmt.Sprintf("  search: %q", f.Query)
	}
	return out
}

func (m Model) renderCategories() string {
	var b strings.Builder
	b.WriteString(m.header(paneCategories, "Categories"))
	b.WriteString("\n")
	for i, c := range m.cats {
		b.WriteString(m.line(paneCategories, i, c.Icon+" "+c.Name))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderTasks() string {
	var b strings.Builder
	b.WriteString(m.header(paneTasks, "Tasks"))
	b.WriteString("\n")
	if len(m.entries) == 0 {
		b.WriteString("  (no tasks)\n")
	}
	all := m.currentCategory() == domain.AllTasksCategory
	for i, e := range m.entries {
		checkbox := "[ ]"
		if e.Task.Checked {
			checkbox = "[x]"
		}
		text := fmt.Sprintf("%s %s  x%d  %s", checkbox, e.Task.Name, e.Task.Count, e.Task.Date)
		if all {
			text += "  (" + e.Category + ")"
		}
		b.WriteString(m.line(paneTasks, i, text))
		b.WriteString("\n")
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s pane • %s open • %s add • %s point • %s edit • %s rename • %s delete • %s finish • %s next code • %s date • %s search • %s due • %s/%s sort • %s export • %s import • %s quit",
		k.Up, k.Down, k.NextPane, k.Open, k.Add, k.AddPoint, k.Edit, k.Rename, k.Delete, k.Finish,
		k.NextCode, k.SetDate, k.Search, k.DateFilter, k.Sort, k.SortReverse, k.Export, k.Import, k.Quit)
}

func emptyPlaceholder(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
