package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/cache"
	"github.com/five82/tasksync/internal/config"
	"github.com/five82/tasksync/internal/coordinator"
	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/netmon"
	"github.com/five82/tasksync/internal/prefs"
	"github.com/five82/tasksync/internal/query"
	"github.com/five82/tasksync/internal/ui"
)

// Options configure the tasksync application.
type Options struct {
	ConfigPath string
	PollEvery  time.Duration // zero uses the configured poll interval
	Ephemeral  bool          // keep preferences in memory only
}

// Session is one wired sync engine: client, state, cache, monitor,
// preference store and the coordinator tying them together.
type Session struct {
	Config      config.Config
	Client      *api.Client
	State       *query.State
	Monitor     *netmon.Monitor
	Cache       *cache.Cache
	Store       *prefs.Store
	Coordinator *coordinator.Coordinator
	Logger      *log.Logger

	kv prefs.KV
}

// Open wires a Session from a loaded configuration. When persist is false
// the coordinator neither restores nor saves the selection.
func Open(cfg config.Config, opts Options, persist bool, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}

	client, err := api.NewClient(cfg.APIURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	backend := cfg.StorageBackend
	if opts.Ephemeral {
		backend = prefs.BackendMemory
	}
	kv, err := prefs.OpenKV(backend, cfg.StateDir)
	if err != nil {
		// Persistence is best effort; fall back to memory.
		logger.Printf("preferences unavailable, keeping them in memory: %v", err)
		kv = prefs.NewMemoryKV()
	}

	s := &Session{
		Config:  cfg,
		Client:  client,
		State:   query.NewState(),
		Monitor: netmon.New(netmon.Options{Logger: logger}),
		Cache:   cache.New(cache.Options{Freshness: cfg.Freshness, MaxEntries: cfg.MaxCacheEntries}),
		Store:   prefs.New(kv, logger),
		Logger:  logger,
		kv:      kv,
	}

	copts := coordinator.Options{
		State:        s.State,
		Fetcher:      client,
		Monitor:      s.Monitor,
		Cache:        s.Cache,
		Auth:         coordinator.AuthFunc(s.signOut),
		Logger:       logger,
		SettleWindow: cfg.SettleWindow,
	}
	if persist {
		copts.Persist = s.Store
	}
	s.Coordinator, err = coordinator.New(copts)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return s, nil
}

// signOut evicts the credentials after the server rejected them.
func (s *Session) signOut(cls errclass.Classification) {
	s.Client.ClearToken()
	s.Cache.InvalidateAll()
	s.Logger.Printf("credentials evicted (%s); set a new token and restart", cls.Label())
}

// Close stops the coordinator and releases the preference backend.
func (s *Session) Close() error {
	s.Coordinator.Close()
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

// Run boots the tasksync TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := openLogFile(cfg.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	// The poller logs through the standard logger; keep it off the alt screen.
	prevOut := log.Writer()
	log.SetOutput(logFile)
	defer log.SetOutput(prevOut)
	logger := log.New(logFile, "tasksync: ", log.LstdFlags|log.Lmicroseconds)

	session, err := Open(cfg, opts, true, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interval := session.Config.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}
	StartPoller(ctx, session.Monitor, session.Client, interval)

	if err := session.Coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: session.Coordinator,
		Tasks:      session.Client,
		Network:    session.Monitor,
		Themes:     session.Store,
		APIURL:     session.Client.BaseURL(),
		LogPath:    cfg.LogPath(),
	})
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// ListRequest describes a one-shot listing.
type ListRequest struct {
	Criteria query.Criteria
	Order    query.SortOrder
	// Explicit selections bypass the persisted one and are not saved.
	Explicit bool
	Timeout  time.Duration
}

// List fetches one result set through the sync engine and renders it as a
// table on w.
func List(ctx context.Context, opts Options, req ListRequest, w io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	session, err := Open(cfg, opts, !req.Explicit, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}
	defer session.Close()

	if req.Explicit {
		session.State.Set(req.Criteria)
		session.State.SetOrder(req.Order)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	view, err := awaitSettled(ctx, session)
	if err != nil {
		return err
	}
	return renderList(w, view)
}

// awaitSettled starts the coordinator and returns the first non-loading view
// for the current selection.
func awaitSettled(ctx context.Context, s *Session) (coordinator.View, error) {
	views := make(chan coordinator.View, 1)
	unsub := s.Coordinator.Subscribe(func(v coordinator.View) {
		if v.Status == coordinator.StatusLoading || v.Status == coordinator.StatusIdle {
			return
		}
		select {
		case views <- v:
		default:
		}
	})
	defer unsub()

	if err := s.Coordinator.Start(ctx); err != nil {
		return coordinator.View{}, fmt.Errorf("start coordinator: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return coordinator.View{}, fmt.Errorf("waiting for tasks: %w", ctx.Err())
		case v := <-views:
			if v.Signature != s.State.Signature() {
				continue
			}
			return v, nil
		}
	}
}

var (
	listHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	listCell   = lipgloss.NewStyle().Padding(0, 1)
)

// renderList prints a settled view. A one-shot process starts online with an
// empty cache, so its views are live results or errors, never fallbacks.
func renderList(w io.Writer, v coordinator.View) error {
	if v.Status == coordinator.StatusError && v.Error != nil {
		return listError(v)
	}

	rows := v.VisibleRows()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DONE", "TITLE", "PRIORITY", "DUE", "TAGS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeader
			}
			return listCell
		})
	for _, task := range rows {
		done := " "
		if task.Completed {
			done = "x"
		}
		t.Row(
			fmt.Sprintf("%d", task.ID),
			done,
			task.Title,
			task.Priority,
			dueLabel(task),
			strings.Join(task.Tags, ","),
		)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d tasks · %s\n", len(rows), describeSelection(v.Criteria, v.Order))
	return err
}

func listError(v coordinator.View) error {
	cls := *v.Error
	msg := fmt.Sprintf("[%s] %s", cls.Label(), cls.UserMessage)
	if v.Terminal {
		msg += "; update the token and sign in again"
	}
	return errors.New(msg)
}

func dueLabel(t api.Task) string {
	due := t.ParsedDueDate()
	if due.IsZero() {
		return ""
	}
	return due.Format("2006-01-02")
}

func describeSelection(c query.Criteria, o query.SortOrder) string {
	parts := make([]string, 0, len(c.Active())+1)
	for _, f := range c.Active() {
		parts = append(parts, c.Label(f))
	}
	parts = append(parts, "sort "+o.String())
	return strings.Join(parts, " · ")
}

// Reset forgets the persisted selection.
func Reset(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	session, err := Open(cfg, opts, true, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}
	defer session.Close()
	session.Store.ClearPersisted()
	return nil
}
