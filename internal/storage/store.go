// Package storage persists the learner's value and visit tables as a plain-text file.
//
// The file holds two sections, values then visits, each a row count followed by that many
// rows of "<state> <a0> <a1> <a2> <a3>". Saves write a scratch file in the same directory and
// rename it over the canonical path, so readers see either the old or the new snapshot.
package storage

import (
	"bufio"
	"io"
	"io/fs"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Width is the number of action columns in every row.
const Width = 4

// MaxVisits is the visit-count ceiling; stored counts are at most MaxVisits-1.
const MaxVisits = 1_000_000_000

// Tables is one snapshot of the learner state. Rows are shared with the caller, not copied.
type Tables struct {
	Values map[int64]*[Width]float64
	Visits map[int64]*[Width]int64
}

func NewTables() *Tables {
	return &Tables{
		Values: make(map[int64]*[Width]float64),
		Visits: make(map[int64]*[Width]int64),
	}
}

// Store loads and saves Tables at a fixed path.
type Store struct {
	path   string
	logger *log.Logger
	commit func(scratch, path string) error
}

// New returns a Store for path. A nil logger logs to log.Default().
func New(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: path, logger: logger, commit: os.Rename}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted tables. A missing file is a silent cold start; an unreadable or
// malformed file is logged and also yields empty tables.
func (s *Store) Load() *Tables {
	tables, err := ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTables()
		}
		s.logger.Printf("[store] discarding table file %s: %v", s.path, err)
		return NewTables()
	}
	s.logger.Printf("[store] restored %d value rows and %d visit rows from %s", len(tables.Values), len(tables.Visits), s.path)
	return tables
}

// Save writes t to a scratch file, syncs it, and renames it over the canonical path.
// On failure the previous file is left untouched and the scratch file is removed.
func (s *Store) Save(t *Tables) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create table directory %s", dir)
		}
	}
	scratch := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := writeScratch(scratch, t); err != nil {
		os.Remove(scratch)
		return err
	}
	if err := s.commit(scratch, s.path); err != nil {
		os.Remove(scratch)
		return errors.Wrapf(err, "commit table file %s", s.path)
	}
	if err := syncDir(dir); err != nil {
		s.logger.Printf("[store] sync directory %s: %v", dir, err)
	}
	return nil
}

func writeScratch(scratch string, t *Tables) error {
	file, err := os.OpenFile(scratch, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "create scratch table file")
	}
	if err := Write(file, t); err != nil {
		file.Close()
		return errors.WithMessagef(err, "write %s", scratch)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return errors.Wrapf(err, "sync %s", scratch)
	}
	return errors.Wrapf(file.Close(), "close %s", scratch)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// ReadFile parses the table file at path. The error wraps fs.ErrNotExist when the file is
// missing.
func ReadFile(path string) (*Tables, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()
	return Read(file)
}

// Write encodes t with rows sorted by state so equal tables give identical bytes.
func Write(w io.Writer, t *Tables) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	buf = strconv.AppendInt(buf[:0], int64(len(t.Values)), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return errors.Wrap(err, "write value header")
	}
	for _, state := range slices.Sorted(maps.Keys(t.Values)) {
		buf = strconv.AppendInt(buf[:0], state, 10)
		for _, v := range t.Values[state] {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrapf(err, "write value row %d", state)
		}
	}

	buf = strconv.AppendInt(buf[:0], int64(len(t.Visits)), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return errors.Wrap(err, "write visit header")
	}
	for _, state := range slices.Sorted(maps.Keys(t.Visits)) {
		buf = strconv.AppendInt(buf[:0], state, 10)
		for _, c := range t.Visits[state] {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, c, 10)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrapf(err, "write visit row %d", state)
		}
	}
	return errors.Wrap(bw.Flush(), "flush tables")
}

// Read decodes a table file. Any malformed token, short section or trailing data is an error.
// Counts above the ceiling are clamped to MaxVisits-1.
func Read(r io.Reader) (*Tables, error) {
	sc := &tokenScanner{sc: bufio.NewScanner(r)}
	sc.sc.Split(bufio.ScanWords)
	tables := NewTables()

	n, err := sc.count("value")
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		state, err := sc.readInt("value state")
		if err != nil {
			return nil, err
		}
		row := new([Width]float64)
		for j := range row {
			if row[j], err = sc.readFloat("value"); err != nil {
				return nil, err
			}
		}
		tables.Values[state] = row
	}

	m, err := sc.count("visit")
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		state, err := sc.readInt("visit state")
		if err != nil {
			return nil, err
		}
		row := new([Width]int64)
		for j := range row {
			c, err := sc.readInt("visit count")
			if err != nil {
				return nil, err
			}
			if c < 0 {
				return nil, errors.Errorf("negative visit count %d for state %d", c, state)
			}
			if c >= MaxVisits {
				c = MaxVisits - 1
			}
			row[j] = c
		}
		tables.Visits[state] = row
	}

	if sc.sc.Scan() {
		return nil, errors.Errorf("unexpected trailing token %q", sc.sc.Text())
	}
	if err := sc.sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read tables")
	}
	return tables, nil
}

type tokenScanner struct {
	sc     *bufio.Scanner
	tokens int
}

func (t *tokenScanner) next(what string) (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", errors.Wrapf(err, "read %s", what)
		}
		return "", errors.Errorf("unexpected end of file reading %s (token %d)", what, t.tokens+1)
	}
	t.tokens++
	return t.sc.Text(), nil
}

func (t *tokenScanner) readInt(what string) (int64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s at token %d", what, t.tokens)
	}
	return v, nil
}

func (t *tokenScanner) readFloat(what string) (float64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s at token %d", what, t.tokens)
	}
	return v, nil
}

func (t *tokenScanner) count(section string) (int, error) {
	n, err := t.readInt(section + " row count")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("negative %s row count %d", section, n)
	}
	return int(n), nil
}
