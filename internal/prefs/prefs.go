package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/tasksync/internal/query"
)

const (
	// Key is the KV key holding the selection.
	Key = "view-filters"
	// ThemeKey is the KV key holding the UI theme name.
	ThemeKey = "ui"

	recordVersion = 1
	defaultTheme  = "Dracula"
)

// record is the on-disk form. Dates are YYYY-MM-DD strings and enums use their
// wire names so the file stays readable.
type record struct {
	Version    int    `toml:"version"`
	Signature  string `toml:"signature"`
	Search     string `toml:"search,omitempty"`
	Completion string `toml:"completion,omitempty"`
	Priority   string `toml:"priority,omitempty"`
	Category   string `toml:"category,omitempty"`
	Tag        string `toml:"tag,omitempty"`
	DueFrom    string `toml:"due_from,omitempty"`
	DueTo      string `toml:"due_to,omitempty"`
	SortField  string `toml:"sort_field"`
	SortDir    string `toml:"sort_dir"`
}

// Store saves and restores one selection. All methods are safe for
// concurrent use and never fail the caller: storage errors are logged.
type Store struct {
	kv     KV
	logger *log.Logger

	mu   sync.Mutex
	last []byte // bytes last written or loaded; nil when unknown
}

// New returns a Store over kv. A nil logger uses log.Default().
func New(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Save writes the selection. Writing a selection identical to the one last
// written or loaded is skipped.
func (s *Store) Save(c query.Criteria, o query.SortOrder) {
	data, err := encode(c, o)
	if err != nil {
		s.logger.Printf("prefs: encode selection: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && bytes.Equal(s.last, data) {
		return
	}
	if err := s.guard("save", func() error { return s.kv.Set(Key, data) }); err != nil {
		s.logger.Printf("prefs: save selection: %v", err)
		return
	}
	s.last = data
}

// Load returns the persisted selection. Missing, unreadable, corrupt or
// invalid records all report ok=false.
func (s *Store) Load() (query.Criteria, query.SortOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.guard("load", func() error {
		var err error
		data, err = s.kv.Get(Key)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Printf("prefs: load selection: %v", err)
		}
		return query.Criteria{}, query.DefaultOrder(), false
	}

	c, o, err := decode(data)
	if err != nil {
		s.logger.Printf("prefs: discarding persisted selection: %v", err)
		return query.Criteria{}, query.DefaultOrder(), false
	}
	if canonical, err := encode(c, o); err == nil {
		s.last = canonical
	}
	return c, o, true
}

// ClearPersisted removes the stored selection.
func (s *Store) ClearPersisted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	if err := s.guard("clear", func() error { return s.kv.Remove(Key) }); err != nil {
		s.logger.Printf("prefs: clear selection: %v", err)
	}
}

// guard runs fn and turns a panic inside the backend into an error.
func (s *Store) guard(op string, fn func() error) (err error) {
	if s.kv == nil {
		return fmt.Errorf("%s: no storage backend", op)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: storage panic: %v", op, r)
		}
	}()
	return fn()
}

func encode(c query.Criteria, o query.SortOrder) ([]byte, error) {
	rec := record{
		Version:   recordVersion,
		Signature: query.SignatureOf(c, o).String(),
		Search:    c.Search,
		Priority:  string(c.Priority),
		Category:  c.CategoryID,
		Tag:       c.TagID,
		DueFrom:   query.FormatDate(c.DueFrom),
		DueTo:     query.FormatDate(c.DueTo),
		SortField: string(o.Field),
		SortDir:   string(o.Direction),
	}
	if c.Completion != query.CompletionAny {
		rec.Completion = c.Completion.String()
	}
	return toml.Marshal(rec)
}

func decode(data []byte) (query.Criteria, query.SortOrder, error) {
	var rec record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return query.Criteria{}, query.SortOrder{}, fmt.Errorf("parse: %w", err)
	}
	if rec.Version != recordVersion {
		return query.Criteria{}, query.SortOrder{}, fmt.Errorf("unsupported version %d", rec.Version)
	}

	completion, err := query.ParseCompletion(rec.Completion)
	if err != nil {
		return query.Criteria{}, query.SortOrder{}, err
	}
	from, err := query.ParseDate(rec.DueFrom)
	if err != nil {
		return query.Criteria{}, query.SortOrder{}, err
	}
	to, err := query.ParseDate(rec.DueTo)
	if err != nil {
		return query.Criteria{}, query.SortOrder{}, err
	}

	c := query.Criteria{
		Search:     rec.Search,
		Completion: completion,
		Priority:   query.Priority(rec.Priority),
		CategoryID: rec.Category,
		TagID:      rec.Tag,
		DueFrom:    from,
		DueTo:      to,
	}
	o := query.SortOrder{Field: query.SortField(rec.SortField), Direction: query.Direction(rec.SortDir)}

	if err := c.Validate(); err != nil {
		return query.Criteria{}, query.SortOrder{}, fmt.Errorf("validate criteria: %w", err)
	}
	if err := o.Validate(); err != nil {
		return query.Criteria{}, query.SortOrder{}, fmt.Errorf("validate order: %w", err)
	}
	if got := query.SignatureOf(c, o).String(); got != rec.Signature {
		return query.Criteria{}, query.SortOrder{}, fmt.Errorf("signature mismatch: stored %q, computed %q", rec.Signature, got)
	}
	return c, o, nil
}

type uiPrefs struct {
	Theme string `toml:"theme"`
}

// LoadTheme returns the persisted theme name, or the default when none is
// stored or the record is unreadable.
func (s *Store) LoadTheme() string {
	var data []byte
	err := s.guard("load theme", func() error {
		var err error
		data, err = s.kv.Get(ThemeKey)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Printf("prefs: load theme: %v", err)
		}
		return defaultTheme
	}
	var p uiPrefs
	if err := toml.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Theme) == "" {
		return defaultTheme
	}
	return p.Theme
}

// SaveTheme persists the theme name.
func (s *Store) SaveTheme(name string) {
	data, err := toml.Marshal(uiPrefs{Theme: name})
	if err != nil {
		s.logger.Printf("prefs: encode theme: %v", err)
		return
	}
	if err := s.guard("save theme", func() error { return s.kv.Set(ThemeKey, data) }); err != nil {
		s.logger.Printf("prefs: save theme: %v", err)
	}
}
