package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/coordinator"
	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/query"
)

// Controller is the sync engine surface the UI drives.
type Controller interface {
	Snapshot() coordinator.View
	Subscribe(fn func(coordinator.View)) (unsubscribe func())
	Selection() (query.Criteria, query.SortOrder)
	SetFilter(query.Criteria)
	SetOrder(query.SortOrder)
	RemoveFilter(query.Field)
	ResetOrder()
	ClearAll()
	Retry()
	ApplyMutation(ctx context.Context, fn func(context.Context) error) error
}

// Network reports connectivity for the header.
type Network interface {
	IsOnline() bool
	OfflineDurationText() string
}

// ThemeStore persists the theme choice.
type ThemeStore interface {
	LoadTheme() string
	SaveTheme(name string)
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Tasks      api.TaskMutator
	Network    Network
	Themes     ThemeStore
	APIURL     string
	LogPath    string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	tasks   api.TaskMutator
	network Network
	themes  ThemeStore
	apiURL  string
	logPath string
	feed    *viewFeed
	keys    keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	view        coordinator.View
	selectedRow int
	notice      string
	reloadedSig query.Signature

	searching bool
	search    textinput.Model
	spinner   spinner.Model
}

// Messages

type viewMsg coordinator.View

type mutationDoneMsg struct {
	title string
	err   error
}

// New creates a new Bubble Tea model. Views published before Init are picked
// up from the controller snapshot.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := ""
	if opts.Themes != nil {
		themeName = opts.Themes.LoadTheme()
	}

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search titles"
	search.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ctx:     ctx,
		ctrl:    opts.Controller,
		tasks:   opts.Tasks,
		network: opts.Network,
		themes:  opts.Themes,
		apiURL:  opts.APIURL,
		logPath: opts.LogPath,
		feed:    newViewFeed(),
		keys:    DefaultKeyMap(),
		theme:   GetTheme(themeName),
		search:  search,
		spinner: sp,
	}
	if m.ctrl != nil {
		m.view = m.ctrl.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.wait(m.ctx), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.Width = max(msg.Width-4, 10)
		m.ready = true
		return m, nil

	case viewMsg:
		m.applyView(coordinator.View(msg))
		return m, m.feed.wait(m.ctx)

	case mutationDoneMsg:
		m.notice = mutationNotice(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyView installs a published view. A view asking for a reload resets the
// selection, once per signature.
func (m *Model) applyView(v coordinator.View) {
	m.view = v
	if m.selectedRow >= len(v.VisibleRows()) {
		m.selectedRow = max(len(v.VisibleRows())-1, 0)
	}
	if v.Status == coordinator.StatusError && v.Error != nil && v.Error.ShouldForceReload {
		if m.reloadedSig != v.Signature {
			m.reloadedSig = v.Signature
			m.notice = "filters were reset"
			m.ctrl.ClearAll()
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.themes != nil {
			m.themes.SaveTheme(m.theme.Name)
		}
		return m, nil
	}

	// The session is over after an auth failure; only global keys work.
	if m.view.Terminal {
		return m, nil
	}

	crit, order := m.ctrl.Selection()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(m.view.VisibleRows())-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(m.view.VisibleRows())-1, 0)

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(crit.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.CyclePriority):
		m.notice = ""
		if next := nextPriority(crit.Priority); next == query.PriorityNone {
			m.ctrl.RemoveFilter(query.FieldPriority)
		} else {
			m.ctrl.SetFilter(crit.WithPriority(next))
		}
	case key.Matches(msg, m.keys.CycleCompleted):
		m.notice = ""
		m.ctrl.SetFilter(crit.WithCompletion(nextCompletion(crit.Completion)))
	case key.Matches(msg, m.keys.RemoveLast):
		if active := crit.Active(); len(active) > 0 {
			m.notice = ""
			m.ctrl.RemoveFilter(active[len(active)-1])
		}
	case key.Matches(msg, m.keys.ClearAll):
		m.notice = ""
		m.selectedRow = 0
		m.ctrl.ClearAll()

	case key.Matches(msg, m.keys.NextSort):
		m.ctrl.SetOrder(order.Next())
	case key.Matches(msg, m.keys.FlipSort):
		m.ctrl.SetOrder(order.Reversed())
	case key.Matches(msg, m.keys.ResetSort):
		m.ctrl.ResetOrder()

	case key.Matches(msg, m.keys.RetryFetch):
		m.notice = ""
		m.ctrl.Retry()
	case key.Matches(msg, m.keys.ToggleDone):
		return m, m.toggleSelected()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ConfirmInput):
		m.searching = false
		m.search.Blur()
		crit, _ := m.ctrl.Selection()
		m.ctrl.SetFilter(crit.WithSearch(m.search.Value()))
		return m, nil
	case key.Matches(msg, m.keys.CancelInput):
		m.searching = false
		m.search.Blur()
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// toggleSelected flips the done flag of the selected row through the
// coordinator so every cached result set is invalidated on success.
func (m Model) toggleSelected() tea.Cmd {
	rows := m.view.VisibleRows()
	if m.tasks == nil || !m.view.Ready() || m.selectedRow >= len(rows) {
		return nil
	}
	task := rows[m.selectedRow]
	ctrl, tasks, ctx := m.ctrl, m.tasks, m.ctx
	return func() tea.Msg {
		err := ctrl.ApplyMutation(ctx, func(ctx context.Context) error {
			_, err := tasks.ToggleTask(ctx, task.ID)
			return err
		})
		return mutationDoneMsg{title: task.Title, err: err}
	}
}

func mutationNotice(msg mutationDoneMsg) string {
	if msg.err == nil {
		return fmt.Sprintf("updated %q", msg.title)
	}
	var cls errclass.Classification
	if errors.As(msg.err, &cls) {
		return fmt.Sprintf("could not update %q: %s", msg.title, cls.UserMessage)
	}
	return fmt.Sprintf("could not update %q: %v", msg.title, msg.err)
}

func nextPriority(p query.Priority) query.Priority {
	switch p {
	case query.PriorityNone:
		return query.PriorityHigh
	case query.PriorityHigh:
		return query.PriorityMedium
	case query.PriorityMedium:
		return query.PriorityLow
	default:
		return query.PriorityNone
	}
}

func nextCompletion(c query.Completion) query.Completion {
	switch c {
	case query.CompletionAny:
		return query.CompletionPending
	case query.CompletionPending:
		return query.CompletionDone
	default:
		return query.CompletionAny
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context ends.
func Run(opts Options) error {
	if opts.Controller == nil {
		return fmt.Errorf("ui requires a controller")
	}
	m := New(opts)
	unsubscribe := opts.Controller.Subscribe(m.feed.push)
	defer unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
