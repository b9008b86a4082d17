package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"repnote/internal/domain"
)

// LastSelection is what was selected when the application last shut down.
// Empty strings and nil pointers mean nothing was selected at that level.
type LastSelection struct {
	Topic    string
	Subject  string
	Content  *domain.Identity
	Category string
	Task     *domain.TaskRef
}

const (
	keyTopic    = "topic"
	keySubject  = "subject"
	keyContent  = "content"
	keyCategory = "category"
	keyTask     = "task"
)

// Store keeps UI state that must survive a restart. It never holds note or
// task data; those belong to the storage gateway.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("state db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS selection (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS expanded (
	topic TEXT NOT NULL,
	subject TEXT NOT NULL,
	discussion_index INTEGER NOT NULL,
	PRIMARY KEY (topic, subject, discussion_index)
);`
	_, err := s.db.Exec(ddl)
	return err
}

// SaveLastSelection replaces the stored selection.
func (s *Store) SaveLastSelection(sel LastSelection) error {
	values := map[string]string{
		keyTopic:    sel.Topic,
		keySubject:  sel.Subject,
		keyCategory: sel.Category,
	}
	if sel.Content != nil {
		raw, err := json.Marshal(sel.Content)
		if err != nil {
			return err
		}
		values[keyContent] = string(raw)
	}
	if sel.Task != nil {
		raw, err := json.Marshal(sel.Task)
		if err != nil {
			return err
		}
		values[keyTask] = string(raw)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM selection;`); err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339)
	for key, val := range values {
		if val == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO selection (key, value, updated_at) VALUES (?, ?, ?);`, key, val, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadLastSelection returns the stored selection. Values that no longer
// decode are dropped rather than reported.
func (s *Store) LoadLastSelection() (LastSelection, error) {
	rows, err := s.db.Query(`SELECT key, value FROM selection;`)
	if err != nil {
		return LastSelection{}, err
	}
	defer rows.Close()

	var sel LastSelection
	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return LastSelection{}, err
		}
		switch key {
		case keyTopic:
			sel.Topic = val
		case keySubject:
			sel.Subject = val
		case keyCategory:
			sel.Category = val
		case keyContent:
			var id domain.Identity
			if json.Unmarshal([]byte(val), &id) == nil && id.Type != "" {
				sel.Content = &id
			}
		case keyTask:
			var ref domain.TaskRef
			if json.Unmarshal([]byte(val), &ref) == nil && ref.Name != "" {
				sel.Task = &ref
			}
		}
	}
	if err := rows.Err(); err != nil {
		return LastSelection{}, err
	}
	return sel, nil
}

// SaveExpanded records which discussions of a subject were expanded.
func (s *Store) SaveExpanded(topic, subject string, indices []int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM expanded WHERE topic = ? AND subject = ?;`, topic, subject); err != nil {
		return err
	}
	for _, idx := range indices {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO expanded (topic, subject, discussion_index) VALUES (?, ?, ?);`, topic, subject, idx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadExpanded(topic, subject string) ([]int, error) {
	rows, err := s.db.Query(`SELECT discussion_index FROM expanded WHERE topic = ? AND subject = ? ORDER BY discussion_index;`, topic, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Ints(out)
	return out, nil
}

// ForgetSubject drops stored state for a subject that was renamed or deleted.
func (s *Store) ForgetSubject(topic, subject string) error {
	_, err := s.db.Exec(`DELETE FROM expanded WHERE topic = ? AND subject = ?;`, topic, subject)
	return err
}

// ForgetTopic drops stored state for every subject of a renamed or deleted
// topic.
func (s *Store) ForgetTopic(topic string) error {
	_, err := s.db.Exec(`DELETE FROM expanded WHERE topic = ?;`, topic)
	return err
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
