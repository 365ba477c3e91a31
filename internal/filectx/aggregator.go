// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package filectx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxFileSize is the largest file that can be attached (5 MiB).
const MaxFileSize int64 = 5 * 1024 * 1024

// DefaultExtensions are the file types accepted by AddPath.
var DefaultExtensions = []string{".txt", ".md", ".json", ".csv", ".html", ".js", ".ts"}

// maxParallelReads bounds concurrent reads in AddBatch.
const maxParallelReads = 4

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnsupportedType is returned by AddPath for extensions outside the
// allowed list.
var ErrUnsupportedType = errors.New("unsupported file type")

// SizeError reports a file over MaxFileSize.
type SizeError struct {
	Name string
	Size int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("File %q is too large (max 5MB).", e.Name)
}

// ReadError reports a file that could not be read or decoded.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("Error reading file %q.", e.Name)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// TYPES
// =============================================================================

// File is one attached file.
type File struct {
	Name    string
	Content string

	// Path is the source on disk, empty for files added from memory.
	Path    string
	Size    int64
	AddedAt time.Time
}

// Source describes a file to attach. When Data is nil the file is read
// from Path.
type Source struct {
	Name string
	Path string
	Data []byte
}

// Aggregator holds the attached files in insertion order. It is safe for
// concurrent use so a Watcher can reload files in the background.
type Aggregator struct {
	mu      sync.RWMutex
	files   []File
	allowed map[string]bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithExtensions restricts AddPath to the given extensions. An empty list
// allows every extension.
func WithExtensions(exts []string) Option {
	return func(a *Aggregator) {
		a.allowed = make(map[string]bool, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			a.allowed[ext] = true
		}
	}
}

// New creates an empty aggregator accepting DefaultExtensions.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{}
	WithExtensions(DefaultExtensions)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// =============================================================================
// ADDING FILES
// =============================================================================

// Add attaches data under name, replacing any file with the same name.
func (a *Aggregator) Add(name string, data []byte) error {
	return a.add(Source{Name: name, Data: data})
}

// AddPath reads and attaches the file at path under its base name.
func (a *Aggregator) AddPath(path string) error {
	return a.add(Source{Path: path})
}

// AddBatch attaches every source independently. The returned slice has one
// entry per source, nil on success. Reads run in parallel; entries are
// stored in source order.
func (a *Aggregator) AddBatch(sources []Source) []error {
	errs := make([]error, len(sources))
	loaded := make([]*File, len(sources))

	var g errgroup.Group
	g.SetLimit(maxParallelReads)
	for i, src := range sources {
		g.Go(func() error {
			f, err := a.load(src)
			loaded[i], errs[i] = f, err
			return nil
		})
	}
	g.Wait()

	for _, f := range loaded {
		if f != nil {
			a.put(*f)
		}
	}
	return errs
}

func (a *Aggregator) add(src Source) error {
	f, err := a.load(src)
	if err != nil {
		return err
	}
	a.put(*f)
	return nil
}

// load validates and decodes src without touching the aggregator.
func (a *Aggregator) load(src Source) (*File, error) {
	name := src.Name
	if name == "" {
		name = filepath.Base(src.Path)
	}

	data := src.Data
	if data == nil {
		if len(a.allowed) > 0 && !a.allowed[strings.ToLower(filepath.Ext(src.Path))] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
		}
		info, err := os.Stat(src.Path)
		if err != nil {
			return nil, &ReadError{Name: name, Err: err}
		}
		if info.IsDir() {
			return nil, &ReadError{Name: name, Err: errors.New("is a directory")}
		}
		if info.Size() > MaxFileSize {
			return nil, &SizeError{Name: name, Size: info.Size()}
		}
		data, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, &ReadError{Name: name, Err: err}
		}
	}

	size := int64(len(data))
	if size > MaxFileSize {
		return nil, &SizeError{Name: name, Size: size}
	}

	content, err := decodeText(data)
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}

	path := src.Path
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return &File{
		Name:    name,
		Content: content,
		Path:    path,
		Size:    size,
		AddedAt: time.Now(),
	}, nil
}

// put stores f, replacing a same-named file in place.
func (a *Aggregator) put(f File) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.files {
		if a.files[i].Name == f.Name {
			a.files[i] = f
			return
		}
	}
	a.files = append(a.files, f)
}

// decodeText decodes UTF-8, stripping a BOM, or UTF-16 with a BOM. Invalid
// sequences become U+FFFD.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// =============================================================================
// REMOVING AND READING
// =============================================================================

// Remove detaches the file called name. Removing a missing file is a no-op.
func (a *Aggregator) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.files {
		if a.files[i].Name == name {
			a.files = append(a.files[:i], a.files[i+1:]...)
			return
		}
	}
}

// Clear detaches every file.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	a.files = nil
	a.mu.Unlock()
}

// Get returns the file called name.
func (a *Aggregator) Get(name string) (File, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, f := range a.files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Files returns a copy of the attached files in order.
func (a *Aggregator) Files() []File {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]File, len(a.files))
	copy(out, a.files)
	return out
}

// Names returns the attached file names in order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.files))
	for i, f := range a.files {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of attached files.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// IsEmpty reports whether no files are attached.
func (a *Aggregator) IsEmpty() bool {
	return a.Len() == 0
}

// TotalSize returns the combined size of the attached files in bytes.
func (a *Aggregator) TotalSize() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var n int64
	for _, f := range a.files {
		n += f.Size
	}
	return n
}

// Summary returns "N file(s) in context", or "" when empty.
func (a *Aggregator) Summary() string {
	n := a.Len()
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d file(s) in context", n)
}

// Serialize renders the context block:
//
//	File: <name>
//	Content:
//	<content>
//
// with entries separated by a blank line. It returns "" when empty.
func (a *Aggregator) Serialize() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.files) == 0 {
		return ""
	}
	entries := make([]string, len(a.files))
	for i, f := range a.files {
		entries[i] = "File: " + f.Name + "\nContent:\n" + f.Content
	}
	return strings.Join(entries, "\n\n")
}

// =============================================================================
// DISK SYNC
// =============================================================================

// hasPath reports whether a file loaded from path is attached.
func (a *Aggregator) hasPath(path string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, f := range a.files {
		if f.Path == path {
			return f.Name, true
		}
	}
	return "", false
}

// Reload re-reads the attached file that came from path. A file that no
// longer exists is detached. ok is false when no attached file came from
// path.
func (a *Aggregator) Reload(path string) (change Change, ok bool) {
	name, ok := a.hasPath(path)
	if !ok {
		return Change{}, false
	}
	change = Change{Name: name, Path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !a.removeIfPath(name, path) {
			return Change{}, false
		}
		change.Removed = true
		return change, true
	}
	f, err := a.load(Source{Name: name, Path: path})
	if err != nil {
		change.Err = err
		return change, true
	}
	// The read runs unlocked; the entry may have been detached meanwhile.
	if !a.putIfPath(*f, path) {
		return Change{}, false
	}
	return change, true
}

// putIfPath replaces the entry named f.Name only while it still came from
// path. It reports whether the entry was replaced.
func (a *Aggregator) putIfPath(f File, path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.files {
		if a.files[i].Name == f.Name && a.files[i].Path == path {
			a.files[i] = f
			return true
		}
	}
	return false
}

// removeIfPath detaches the entry called name only while it still came
// from path.
func (a *Aggregator) removeIfPath(name, path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.files {
		if a.files[i].Name == name && a.files[i].Path == path {
			a.files = append(a.files[:i], a.files[i+1:]...)
			return true
		}
	}
	return false
}
