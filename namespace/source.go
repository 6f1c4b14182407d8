package namespace

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Source is an opened artifact. Its files are the resources of the namespace it
// seeds.
type Source interface {
	fs.FS
	// Location is the path or URL the source was opened from.
	Location() string
	Close() error
}

// FetchFunc downloads a remote artifact. The caller closes the returned body.
type FetchFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

// archiveExts are the artifact extensions read as zip archives.
var archiveExts = map[string]bool{".zip": true, ".jar": true}

// IsArchive reports whether name has an archive extension.
func IsArchive(name string) bool {
	return archiveExts[strings.ToLower(path.Ext(name))]
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// OpenSource opens a directory, archive, single file or remote URL. Remote
// sources are never cached: every Open re-fetches the artifact through fetch.
func OpenSource(location string, fetch FetchFunc) (Source, error) {
	if IsRemote(location) {
		if fetch == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoFetcher, location)
		}
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid source url %q: %w", location, err)
		}
		return &remoteSource{location: location, name: path.Base(u.Path), fetch: fetch}, nil
	}

	p := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid source url %q: %w", location, err)
		}
		p = filepath.FromSlash(u.Path)
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open module source: %w", err)
	}
	switch {
	case info.IsDir():
		return &dirSource{FS: os.DirFS(p), location: location}, nil
	case IsArchive(p):
		rc, err := zip.OpenReader(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive %s: %w", p, err)
		}
		return &archiveSource{rc: rc, location: location}, nil
	case info.Mode().IsRegular():
		return &fileSource{dir: os.DirFS(filepath.Dir(p)), name: filepath.Base(p), location: location}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, location)
	}
}

type dirSource struct {
	fs.FS
	location string
}

func (s *dirSource) Location() string { return s.location }
func (s *dirSource) Close() error     { return nil }

type archiveSource struct {
	rc       *zip.ReadCloser
	location string
}

func (s *archiveSource) Open(name string) (fs.File, error) { return s.rc.Open(name) }
func (s *archiveSource) Location() string                  { return s.location }
func (s *archiveSource) Close() error                      { return s.rc.Close() }

// fileSource exposes exactly one file under its base name.
type fileSource struct {
	dir      fs.FS
	name     string
	location string
}

func (s *fileSource) Open(name string) (fs.File, error) {
	if name != s.name {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return s.dir.Open(name)
}

func (s *fileSource) Location() string { return s.location }
func (s *fileSource) Close() error     { return nil }

type remoteSource struct {
	location string
	name     string
	fetch    FetchFunc
}

func (s *remoteSource) Location() string { return s.location }
func (s *remoteSource) Close() error     { return nil }

func (s *remoteSource) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if !IsArchive(s.name) && name != s.name {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	body, err := s.fetch(context.Background(), s.location)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	if IsArchive(s.name) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return zr.Open(name)
	}
	return &memFile{Reader: bytes.NewReader(data), name: name, size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Size() int64                { return f.size }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }
