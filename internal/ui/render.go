package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/coordinator"
	"github.com/five82/tasksync/internal/query"
)

// Lines used by everything except table rows: header, filter bar, banner,
// footer, plus the table's top border, header row, separator and bottom
// border.
const chromeLines = 8

// renderMain renders the full screen.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("tasksync", styles.Logo),
		bg.Render(truncateMiddle(m.apiURL, 40), styles.MutedText),
	}
	if m.network != nil {
		if m.network.IsOnline() {
			parts = append(parts, bg.Render("online", styles.SuccessText))
		} else {
			label := "offline"
			if d := m.network.OfflineDurationText(); d != "" {
				label += " " + d
			}
			parts = append(parts, bg.Render(label, styles.DangerText))
		}
	}
	parts = append(parts, bg.Render(fmt.Sprintf("%d tasks", len(m.view.VisibleRows())), styles.Text))
	return bg.FillLine(bg.Join(parts, " │ "), m.width)
}

func (m Model) renderFilterBar() string {
	styles := m.theme.Styles()
	crit, order := m.view.Criteria, m.view.Order

	chips := make([]string, 0, len(crit.Active())+1)
	for _, f := range crit.Active() {
		chip := crit.Label(f)
		if f == query.FieldPriority {
			chips = append(chips, styles.PriorityStyle(crit.Priority).Render(chip))
			continue
		}
		chips = append(chips, styles.AccentText.Render("["+chip+"]"))
	}
	if len(chips) == 0 {
		chips = append(chips, styles.FaintText.Render("no filters"))
	}

	sortLabel := "sort " + order.String()
	if order.IsDefault() {
		sortLabel += " (default)"
	}
	chips = append(chips, styles.MutedText.Render(sortLabel))
	return strings.Join(chips, " ")
}

// bannerText returns the status line for v and whether it describes a
// problem.
func bannerText(v coordinator.View) (string, bool) {
	switch {
	case v.Terminal && v.Error != nil:
		return fmt.Sprintf("[%s] %s Update the token in config and restart.", v.Error.Label(), v.Error.UserMessage), true
	case v.Status == coordinator.StatusError && v.Error != nil:
		text := fmt.Sprintf("[%s] %s", v.Error.Label(), v.Error.UserMessage)
		if v.OfflineDurationText != "" {
			text += " · offline " + v.OfflineDurationText
		}
		if v.Error.CanRetry {
			text += " · press r to retry"
		}
		return text, true
	case v.UsingFallback:
		text := "showing cached data"
		if v.OfflineDurationText != "" {
			text += " · offline " + v.OfflineDurationText
		}
		if v.Stale {
			text += " · stale"
		}
		return text, true
	case v.Status == coordinator.StatusSuccess && !v.FetchedAt.IsZero():
		return "updated " + v.FetchedAt.Format("15:04:05"), false
	}
	return "", false
}

func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	if m.view.Status == coordinator.StatusLoading {
		return styles.InfoText.Render(m.spinner.View() + " loading tasks")
	}
	text, problem := bannerText(m.view)
	line := styles.MutedText.Render(text)
	switch {
	case m.view.UsingFallback:
		line = styles.WarningText.Render(text)
	case problem:
		line = styles.DangerText.Render(text)
	}
	if m.notice != "" {
		line += "  " + styles.AccentText.Render(m.notice)
	}
	return line
}

// visibleWindow returns the [start, end) slice of rows that fits on screen
// with the selection in view.
func visibleWindow(total, selected, capacity int) (int, int) {
	if capacity <= 0 || total <= capacity {
		return 0, total
	}
	start := 0
	if selected >= capacity {
		start = selected - capacity + 1
	}
	return start, start + capacity
}

func (m Model) renderTable() string {
	styles := m.theme.Styles()
	rows := m.view.VisibleRows()
	if len(rows) == 0 {
		if m.view.Ready() {
			return styles.FaintText.Render("  no tasks match the current filters")
		}
		return ""
	}

	capacity := m.height - chromeLines
	if m.searching {
		capacity--
	}
	start, end := visibleWindow(len(rows), m.selectedRow, capacity)

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Accent)).Padding(0, 1)
	cell := styles.Text.Padding(0, 1)
	done := styles.FaintText.Padding(0, 1).Strikethrough(true)
	selected := styles.Selected.Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Border))).
		Headers("", "TITLE", "PRIORITY", "DUE", "TAGS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case start+row == m.selectedRow:
				return selected
			case rows[start+row].Completed:
				return done
			case col == 2:
				return styles.PriorityStyle(query.Priority(rows[start+row].Priority)).Margin(0, 1)
			}
			return cell
		})
	if m.width > 0 {
		t = t.Width(m.width)
	}
	titleLimit := 0
	if m.width > 0 {
		titleLimit = max(m.width-50, 16)
	}
	for _, task := range rows[start:end] {
		t.Row(taskCells(task, titleLimit)...)
	}
	return t.Render()
}

// taskCells renders one row; titleLimit of zero leaves the title whole.
func taskCells(t api.Task, titleLimit int) []string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	due := ""
	if d := t.ParsedDueDate(); !d.IsZero() {
		due = d.Format("Jan 02")
	}
	return []string{check, truncate(t.Title, titleLimit), t.Priority, due, strings.Join(t.Tags, " ")}
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	parts := make([]string, 0, len(m.keys.ShortHelp())+1)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, bg.Render(h.Key, styles.WarningText)+bg.Space()+bg.Render(h.Desc, styles.MutedText))
	}
	if m.view.Ready() && len(m.view.VisibleRows()) > 0 {
		pos := strconv.Itoa(m.selectedRow+1) + "/" + strconv.Itoa(len(m.view.VisibleRows()))
		parts = append(parts, bg.Render(pos, styles.FaintText))
	}
	return bg.FillLine(bg.Join(parts, " · "), m.width)
}
