package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umdcms/qcmanager/internal/config"
	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/report"
)

// Store manages session directories under a root storage directory.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
// If baseDir is empty, config.DefaultStoreDir is used.
func NewStore(baseDir string) *Store {
	if baseDir == "" {
		baseDir = config.DefaultStoreDir
	}
	return &Store{baseDir: baseDir}
}

// BaseDir returns the root storage directory.
func (st *Store) BaseDir() string {
	return st.baseDir
}

// sessionDir returns the directory for a board pair.
func (st *Store) sessionDir(boardType, boardID string) string {
	return filepath.Join(st.baseDir, boardType+"."+boardID)
}

// Create creates a new session for the given board.
// It refuses to reuse an existing session directory: a board pair that
// was already profiled must be resumed with Load, never silently
// overwritten.
func (st *Store) Create(boardType, boardID string) (*Session, error) {
	if boardType == "" || boardID == "" {
		return nil, qcerrors.New(qcerrors.ErrSession, "board type and board ID are required")
	}
	if strings.ContainsAny(boardType+boardID, "./\\") {
		return nil, qcerrors.New(qcerrors.ErrSession,
			fmt.Sprintf("board identifiers must not contain path separators: %s.%s", boardType, boardID))
	}

	dir := st.sessionDir(boardType, boardID)
	if _, err := os.Stat(dir); err == nil {
		return nil, qcerrors.WithSuggestion(qcerrors.ErrSession,
			fmt.Sprintf("session directory %s already exists", dir),
			"Resume the existing session with `qcman run`, or move the old directory aside first.")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, qcerrors.Wrap(err, qcerrors.ErrSession, "failed to create session directory")
	}

	s := &Session{
		BoardType: boardType,
		BoardID:   boardID,
		CreatedAt: time.Now(),
		Results:   []*report.Result{},
		dir:       dir,
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads an existing session by board pair.
func (st *Store) Load(boardType, boardID string) (*Session, error) {
	return st.LoadDir(st.sessionDir(boardType, boardID))
}

// LoadDir reads the session stored in the given directory.
func (st *Store) LoadDir(dir string) (*Session, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, qcerrors.New(qcerrors.ErrNotFound,
				fmt.Sprintf("no session file at %s", path))
		}
		return nil, qcerrors.Wrap(err, qcerrors.ErrSession, "failed to read session file")
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, qcerrors.Wrap(err, qcerrors.ErrSession,
			fmt.Sprintf("failed to parse session file %s", path))
	}
	s.dir = dir
	return &s, nil
}

// Info summarizes a stored session for listings.
type Info struct {
	BoardType string
	BoardID   string
	Dir       string
	Results   int
	Failed    int
}

// List returns summaries of every session under the store, sorted by
// board identifier.
func (st *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(st.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, qcerrors.Wrap(err, qcerrors.ErrSession, "failed to read store directory")
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(st.baseDir, entry.Name())
		s, err := st.LoadDir(dir)
		if err != nil {
			// Directories without a parseable session file are skipped
			continue
		}
		complete, failed := s.Counts()
		infos = append(infos, Info{
			BoardType: s.BoardType,
			BoardID:   s.BoardID,
			Dir:       dir,
			Results:   complete + failed,
			Failed:    failed,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].BoardType != infos[j].BoardType {
			return infos[i].BoardType < infos[j].BoardType
		}
		return infos[i].BoardID < infos[j].BoardID
	})
	return infos, nil
}
