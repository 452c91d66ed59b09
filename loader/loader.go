// Package loader reads dossier files: the journals, chart of accounts,
// counterparties and optional pieces of an accounting dossier, written in
// YAML.
//
// A dossier file may include others:
//
//	includes:
//	  - chart.yaml
//	journals:
//	  - {code: AC, label: Achats, kind: AC}
//	pieces:
//	  - journal: AC
//	    number: AC240001
//	    date: 01/03/2024
//	    lines:
//	      - {account: "601000", label: Achat, debit: "100,00"}
//	      - {account: "401000", label: Achat, credit: "100,00", counterparty: FO001}
//
// Example usage:
//
//	// Load a single file, ignoring its includes
//	dossier, err := loader.New().Load(ctx, "dossier.yaml")
//
//	// Load with recursive include resolution
//	dossier, err := loader.New(loader.WithFollowIncludes()).Load(ctx, "dossier.yaml")
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/port"
)

// Loader reads dossier files.
//
// Configure the loader using functional options passed to New:
//
//	loader := New(WithFollowIncludes(), WithCodec(amount.French))
type Loader struct {
	// FollowIncludes loads the files listed under includes, relative to the
	// including file. Files included more than once are read once.
	FollowIncludes bool

	// Codec reads the amount cells of pieces.
	Codec amount.Codec
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to load included files too.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// WithCodec sets the amount codec.
func WithCodec(codec amount.Codec) Option {
	return func(l *Loader) {
		l.Codec = codec
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{Codec: amount.French}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FileError locates a failure in a dossier file.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func (e *FileError) GetFilename() string {
	return e.Filename
}

// DuplicateError is returned when two entries declare the same code.
type DuplicateError struct {
	Kind     string // journal, account, counterparty, piece
	Code     string
	Filename string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s declared twice (again in %s)", e.Kind, e.Code, e.Filename)
}

// Load reads filename and, when following includes, every file it includes.
func (l *Loader) Load(ctx context.Context, filename string) (*Dossier, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	state := &loaderState{
		loader:  l,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
		dossier: &Dossier{Root: absPath},
	}
	if err := state.loadRecursive(ctx, absPath); err != nil {
		return nil, err
	}
	return state.dossier, nil
}

// LoadBytes reads one dossier document from memory. Includes are ignored.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*Dossier, error) {
	state := &loaderState{
		loader:  l,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
		dossier: &Dossier{Root: filename},
	}
	f, err := decode(filename, data)
	if err != nil {
		return nil, err
	}
	if err := state.merge(filename, f); err != nil {
		return nil, err
	}
	return state.dossier, nil
}

type loaderState struct {
	loader  *Loader
	visited map[string]bool // absolute paths already loaded
	seen    map[string]bool // kind + code already declared
	dossier *Dossier
}

func decode(filename string, data []byte) (*file, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &FileError{Filename: filename, Err: err}
	}
	return &f, nil
}

func (s *loaderState) loadRecursive(ctx context.Context, absPath string) error {
	if s.visited[absPath] {
		return nil
	}
	s.visited[absPath] = true
	if absPath != s.dossier.Root {
		s.dossier.Includes = append(s.dossier.Includes, absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", absPath, err)
	}
	f, err := decode(absPath, data)
	if err != nil {
		return err
	}
	if err := s.merge(absPath, f); err != nil {
		return err
	}

	if !s.loader.FollowIncludes {
		return nil
	}
	baseDir := filepath.Dir(absPath)
	for _, inc := range f.Includes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		includePath := inc
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		if err := s.loadRecursive(ctx, filepath.Clean(includePath)); err != nil {
			return fmt.Errorf("in file %s: %w", absPath, err)
		}
	}
	return nil
}

func (s *loaderState) declare(kind, code, filename string) error {
	if code == "" {
		return &FileError{Filename: filename, Err: fmt.Errorf("%s without code", kind)}
	}
	key := kind + "\x00" + code
	if s.seen[key] {
		return &DuplicateError{Kind: kind, Code: code, Filename: filename}
	}
	s.seen[key] = true
	return nil
}

func (s *loaderState) merge(filename string, f *file) error {
	d := s.dossier
	for _, j := range f.Journals {
		if err := s.declare("journal", j.Code, filename); err != nil {
			return err
		}
		kind := port.JournalKind(j.Kind)
		if kind == "" {
			kind = port.Misc
		}
		if !kind.Valid() {
			return &FileError{Filename: filename, Err: fmt.Errorf("journal %s: unknown kind %q", j.Code, j.Kind)}
		}
		d.Journals = append(d.Journals, port.JournalInfo{Code: j.Code, Label: j.Label, Kind: kind})
	}
	for _, a := range f.Accounts {
		if err := s.declare("account", a.Code, filename); err != nil {
			return err
		}
		accountType := port.AccountType(a.Type)
		if accountType == "" {
			accountType = port.AccountGeneral
		}
		d.Accounts = append(d.Accounts, port.AccountMatch{Code: a.Code, Label: a.Label, Type: accountType})
	}
	for _, c := range f.Counterparties {
		if err := s.declare("counterparty", c.Code, filename); err != nil {
			return err
		}
		kind := port.CounterpartyKind(c.Kind)
		if kind == "" {
			kind = port.Other
		}
		d.Counterparties = append(d.Counterparties, port.CounterpartyMatch{Code: c.Code, Name: c.Name, Kind: kind, Account: c.Account})
	}
	for _, p := range f.Pieces {
		if err := s.declare("piece", p.Number, filename); err != nil {
			return err
		}
		doc, err := p.document(s.loader.Codec)
		if err != nil {
			return &FileError{Filename: filename, Err: fmt.Errorf("piece %s: %w", p.Number, err)}
		}
		d.Pieces = append(d.Pieces, doc)
	}
	return nil
}
