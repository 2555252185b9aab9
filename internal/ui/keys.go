package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the task list.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Filters
	Search         key.Binding
	CyclePriority  key.Binding
	CycleCompleted key.Binding
	RemoveLast     key.Binding
	ClearAll       key.Binding

	// Sorting
	NextSort     key.Binding
	FlipSort     key.Binding
	ResetSort    key.Binding
	RetryFetch   key.Binding
	ToggleDone   key.Binding
	ConfirmInput key.Binding
	CancelInput  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search titles"),
		),
		CyclePriority: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Cycle priority filter"),
		),
		CycleCompleted: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cycle done/pending"),
		),
		RemoveLast: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("backspace", "Drop last filter"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear filters and sort"),
		),

		NextSort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Next sort field"),
		),
		FlipSort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Reverse sort"),
		),
		ResetSort: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Default sort"),
		),
		RetryFetch: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Retry"),
		),
		ToggleDone: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t", "Toggle task done"),
		),

		ConfirmInput: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Apply search"),
		),
		CancelInput: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel search"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.CyclePriority, k.NextSort, k.RetryFetch, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Search, k.CyclePriority, k.CycleCompleted, k.RemoveLast, k.ClearAll},
		{k.NextSort, k.FlipSort, k.ResetSort},
		{k.ToggleDone, k.RetryFetch},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
