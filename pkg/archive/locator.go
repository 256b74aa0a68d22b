package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxIdentifierLength is the longest identifier accepted by the locator.
const MaxIdentifierLength = 255

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,254}$`)

// ValidateIdentifier checks id against the naming policy: ASCII letters,
// digits, '.', '_' and '-', starting with a letter or digit, at most
// MaxIdentifierLength bytes, no path separators and not "." or "..".
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	case len(id) > MaxIdentifierLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentifier, MaxIdentifierLength)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidIdentifier, id)
	case !identifierPattern.MatchString(id):
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}

// Locator maps archive identifiers to directories below a fixed root.
// It only inspects the filesystem and is safe for concurrent use.
type Locator struct {
	root string
}

// NewLocator returns a locator for root. The root is made absolute and its
// symlinks are resolved once so containment checks compare canonical paths.
func NewLocator(root string) (*Locator, error) {
	if root == "" {
		return nil, errors.New("archive root is empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root %q: %w", root, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root %q: %w", root, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat archive root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive root %q is not a directory", root)
	}

	return &Locator{root: canonical}, nil
}

// Root returns the canonical archive root.
func (l *Locator) Root() string {
	return l.root
}

// Resolve validates id and returns the request for its directory.
//
// Errors wrap ErrInvalidIdentifier when id violates the naming policy or
// escapes the root through a symlink, and ErrNotFound when nothing usable
// exists at the resolved path. No process is started here.
func (l *Locator) Resolve(id string) (*ArchiveRequest, error) {
	if err := ValidateIdentifier(id); err != nil {
		return nil, err
	}

	candidate := filepath.Join(l.root, id)

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, id, err)
	}

	if !l.contains(resolved) {
		return nil, fmt.Errorf("%w: %q resolves outside the archive root", ErrInvalidIdentifier, id)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, id, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, id)
	}

	return &ArchiveRequest{ID: id, Path: resolved}, nil
}

func (l *Locator) contains(path string) bool {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Entry describes one archive directory found under the root.
type Entry struct {
	ID      string
	Files   int
	Size    int64
	ModTime time.Time
}

// List returns every directory under the root that Resolve would accept,
// sorted by identifier. Files and Size count regular files recursively.
func (l *Locator) List() ([]Entry, error) {
	dirents, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read archive root: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		req, err := l.Resolve(d.Name())
		if err != nil {
			continue
		}

		entry := Entry{ID: req.ID}
		if info, err := os.Stat(req.Path); err == nil {
			entry.ModTime = info.ModTime()
		}

		walkErr := filepath.WalkDir(req.Path, func(_ string, de fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !de.Type().IsRegular() {
				return nil
			}
			info, err := de.Info()
			if err != nil {
				return nil
			}
			entry.Files++
			entry.Size += info.Size()
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("scan %s: %w", req.ID, walkErr)
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
