// Package source enumerates fixture inputs: single files, directory trees
// and zip archives of fixtures.
package source

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Input is one fixture found under a source path.
type Input struct {
	// Name is the path of the fixture, for archives "archive.zip/inner/path".
	Name string
	data func() ([]byte, error)
	enc  encoding.Encoding
}

// Read returns content of the input converted to UTF-8. A byte order mark
// overrides the configured encoding.
func (in Input) Read() ([]byte, error) {
	data, err := in.data()
	if err != nil || in.enc == nil {
		return data, err
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(in.enc.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", in.Name, err)
	}
	return out, nil
}

type options struct {
	enc      encoding.Encoding
	codePage encoding.Encoding
}

// Option modifies Collect behavior.
type Option func(*options)

// WithEncoding sets the encoding fixture content is written in.
func WithEncoding(enc encoding.Encoding) Option {
	return func(o *options) { o.enc = enc }
}

// WithCodePage forces the encoding of non UTF-8 file names in archives.
func WithCodePage(enc encoding.Encoding) Option {
	return func(o *options) { o.codePage = enc }
}

// IsFixture reports whether name looks like a fixture file.
func IsFixture(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Collect returns all fixtures under src in natural order of their names.
// Directories are walked recursively without following links, archives
// contribute every fixture they hold. Archives are recognized by extension
// or content.
func Collect(ctx context.Context, src string, opts ...Option) ([]Input, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	fi, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("input source was not found: %w", err)
	}

	var inputs []Input
	switch {
	case fi.IsDir():
		err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.Type().IsRegular() && IsFixture(p) {
				inputs = append(inputs, fileInput(p, o.enc))
			}
			return nil
		})
	case !fi.Mode().IsRegular():
		return nil, fmt.Errorf("unexpected path mode for (%s)", src)
	case !IsFixture(src) && isArchive(src):
		inputs, err = archiveInputs(src, &o)
	default:
		inputs = append(inputs, fileInput(src, o.enc))
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(inputs, func(i, j int) bool {
		return natural.Less(inputs[i].Name, inputs[j].Name)
	})
	return inputs, nil
}

func fileInput(p string, enc encoding.Encoding) Input {
	return Input{Name: p, enc: enc, data: func() ([]byte, error) { return os.ReadFile(p) }}
}

func isArchive(p string) bool {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return true
	}
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 262)
	n, _ := io.ReadFull(f, head)
	return filetype.Is(head[:n], "zip")
}

// archiveInputs reads every fixture of the archive. Entries with path
// traversal components or absolute paths fail the whole archive.
func archiveInputs(archive string, o *options) ([]Input, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var inputs []Input
	for _, f := range r.File {
		name := f.FileHeader.Name
		if o.codePage != nil && f.FileHeader.NonUTF8 {
			n, err := o.codePage.NewDecoder().String(name)
			if err != nil {
				return nil, fmt.Errorf("zip entry %q: unable to convert name: %w", name, err)
			}
			name = n
		}
		if !isSafePath(name) {
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !IsFixture(name) {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("zip entry %q: %w", name, err)
		}
		inputs = append(inputs, Input{
			Name: filepath.ToSlash(archive) + "/" + name,
			enc:  o.enc,
			data: func() ([]byte, error) { return data, nil },
		})
	}
	return inputs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isSafePath returns false for paths that could escape the archive root:
// absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
