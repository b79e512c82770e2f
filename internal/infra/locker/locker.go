package locker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ErrUnsafeName is returned when nothing usable is left of an upload name.
var ErrUnsafeName = errors.New("unsafe evidence file name")

// SecureFilename reduces an uploaded name to a flat ASCII file name:
// separators become spaces, runs of whitespace become "_", everything outside
// [A-Za-z0-9_.-] is dropped and leading/trailing dots and underscores are trimmed.
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	name = b.String()
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Locker stores uploaded evidence under Root/<investigation id>/ while it is
// analyzed.
type Locker struct {
	Root   string
	Retain bool
	log    zerolog.Logger
}

func New(root string, retain bool, log zerolog.Logger) (*Locker, error) {
	if root == "" {
		root = "Evidence"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create evidence locker: %w", err)
	}
	return &Locker{Root: root, Retain: retain, log: log.With().Str("component", "locker").Logger()}, nil
}

// Clear wipes everything left in the locker by earlier runs.
func (l *Locker) Clear() error {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(l.Root, e.Name())
		if err := os.RemoveAll(p); err != nil {
			l.log.Warn().Err(err).Str("path", p).Msg("failed to delete")
		}
	}
	l.log.Info().Str("root", l.Root).Msg("evidence locker cleared")
	return nil
}

// Open creates the working directory of one investigation.
func (l *Locker) Open(id domain.ID) (string, error) {
	name := SecureFilename(string(id))
	if name == "" {
		return "", ErrUnsafeName
	}
	dir := filepath.Join(l.Root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	return dir, nil
}

// Save copies r into dir under the sanitized name and returns the path.
// A name already taken in dir gets a numeric suffix.
func (l *Locker) Save(dir, name string, r io.Reader) (string, error) {
	safe := SecureFilename(name)
	if safe == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	path := filepath.Join(dir, safe)
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

// Release removes an investigation directory unless the locker retains evidence.
func (l *Locker) Release(dir string) error {
	if l.Retain {
		return nil
	}
	return os.RemoveAll(dir)
}

// Check verifies uploads can still be written under the root.
func (l *Locker) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(l.Root, ".health-*")
	if err != nil {
		return fmt.Errorf("evidence locker not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
