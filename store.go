package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	finalSuffix     = "_final.md"
	maxTitleBytes   = 100
	processedSubdir = "processed"
	publishLockName = ".publish.lock"
)

var (
	// ErrInvalidTransition is returned for any transition other than final -> processed
	ErrInvalidTransition = errors.New("invalid article state transition")
	// ErrPublishLocked is returned when another publish run holds the lock
	ErrPublishLocked = errors.New("another publish run is in progress")
	// ErrArticleNotFound is returned when an article id matches no file
	ErrArticleNotFound = errors.New("article not found")
)

// ArticleStore manages article files under the content directory
type ArticleStore struct {
	dir string
	now func() time.Time
}

// NewArticleStore creates a store rooted at dir
func NewArticleStore(dir string) *ArticleStore {
	return &ArticleStore{dir: dir, now: time.Now}
}

// Dir returns the draft/final directory.
func (s *ArticleStore) Dir() string {
	return s.dir
}

// ProcessedDir returns the archive directory.
func (s *ArticleStore) ProcessedDir() string {
	return filepath.Join(s.dir, processedSubdir)
}

// Save writes content as a draft and returns its path. A second save on the
// same day for the same tool title overwrites the first.
func (s *ArticleStore) Save(content string, tool ToolInfo) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating content directory: %w", err)
	}

	path := filepath.Join(s.dir, s.draftFilename(tool.Title))
	if _, err := os.Stat(path); err == nil {
		log.Printf("Warning: overwriting existing article %s", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing article: %w", err)
	}
	return path, nil
}

// draftFilename derives the draft name from the date and tool title. The
// title part is cut to maxTitleBytes on a rune boundary so long titles stay
// within file system name limits.
func (s *ArticleStore) draftFilename(title string) string {
	name := strings.ToLower(strings.NewReplacer(" ", "_", "/", "_").Replace(title))
	return fmt.Sprintf("%s_%s_review.md", s.now().Format("2006-01-02"), truncateBytes(name, maxTitleBytes))
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for cut < len(s) {
		_, size := utf8.DecodeRuneInString(s[cut:])
		if cut+size > n {
			break
		}
		cut += size
	}
	return s[:cut]
}

// Classify derives the lifecycle state of path from its location.
func (s *ArticleStore) Classify(path string) ArticleFile {
	dir := filepath.Clean(filepath.Dir(path))
	switch {
	case dir == filepath.Clean(s.ProcessedDir()):
		return ArticleFile{Path: path, State: StateProcessed}
	case strings.HasSuffix(filepath.Base(path), finalSuffix):
		return ArticleFile{Path: path, State: StateFinal}
	default:
		return ArticleFile{Path: path, State: StateDraft}
	}
}

// ListFinal returns the articles ready to publish. Order follows the
// directory listing. Processed files live in a subdirectory and are never
// matched.
func (s *ArticleStore) ListFinal() ([]ArticleFile, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+finalSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing final articles: %w", err)
	}

	files := make([]ArticleFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, ArticleFile{Path: p, State: StateFinal})
	}
	return files, nil
}

// List returns every article in every state, sorted by state then name.
func (s *ArticleStore) List() ([]ArticleFile, error) {
	var files []ArticleFile
	for _, pattern := range []string{
		filepath.Join(s.dir, "*.md"),
		filepath.Join(s.ProcessedDir(), "*"),
	} {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("listing articles: %w", err)
		}
		for _, p := range paths {
			if info, err := os.Stat(p); err != nil || info.IsDir() {
				continue
			}
			files = append(files, s.Classify(p))
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].State != files[j].State {
			return files[i].State < files[j].State
		}
		return files[i].ID() < files[j].ID()
	})
	return files, nil
}

// FindFinal returns the final article whose base name is id.
func (s *ArticleStore) FindFinal(id string) (ArticleFile, error) {
	if id == "" || id != filepath.Base(id) {
		return ArticleFile{}, fmt.Errorf("%q: %w", id, ErrArticleNotFound)
	}
	file := s.Classify(filepath.Join(s.dir, id))
	if file.State != StateFinal {
		return ArticleFile{}, fmt.Errorf("%q is not a final article: %w", id, ErrArticleNotFound)
	}
	if _, err := os.Stat(file.Path); err != nil {
		return ArticleFile{}, fmt.Errorf("%q: %w", id, ErrArticleNotFound)
	}
	return file, nil
}

// Transition moves file to the next state. Only final -> processed is
// allowed; it is a rename into the processed directory keeping the base name.
func (s *ArticleStore) Transition(file ArticleFile, next ArticleState) (ArticleFile, error) {
	if !file.State.CanTransition(next) {
		return file, fmt.Errorf("%s -> %s for %s: %w", file.State, next, file.Path, ErrInvalidTransition)
	}

	if err := os.MkdirAll(s.ProcessedDir(), 0755); err != nil {
		return file, fmt.Errorf("creating processed directory: %w", err)
	}

	target := filepath.Join(s.ProcessedDir(), filepath.Base(file.Path))
	if err := os.Rename(file.Path, target); err != nil {
		return file, fmt.Errorf("moving %s to %s: %w", file.Path, target, err)
	}
	return ArticleFile{Path: target, State: next}, nil
}

// MarkProcessed records that file has been published.
func (s *ArticleStore) MarkProcessed(file ArticleFile) (ArticleFile, error) {
	return s.Transition(file, StateProcessed)
}

// AcquirePublishLock takes the run-level publish lock. Locks older than
// staleAfter are replaced. The returned func releases the lock.
func (s *ArticleStore) AcquirePublishLock(staleAfter time.Duration) (func(), error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	path := filepath.Join(s.dir, publishLockName)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), s.now().Format(time.RFC3339))
			f.Close()
			return func() {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					log.Printf("Warning: could not remove publish lock %s: %v", path, err)
				}
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating publish lock: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || staleAfter <= 0 || s.now().Sub(info.ModTime()) < staleAfter {
			return nil, fmt.Errorf("%s: %w", path, ErrPublishLocked)
		}
		log.Printf("Warning: removing stale publish lock %s (age %s)", path, s.now().Sub(info.ModTime()).Round(time.Second))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale publish lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrPublishLocked)
}
