package preview

import (
	"net/url"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	// Scheme identifies preview documents
	Scheme = "preview"

	// FileScheme identifies ordinary files
	FileScheme = "file"
)

// 📄 URI identifies a document to the host editor
type URI struct {
	Scheme string
	Path   string
}

// PreviewURI returns the virtual document URI for a file path
func PreviewURI(path string) URI {
	return URI{Scheme: Scheme, Path: path}
}

// FileURI returns the URI of the real file at path
func FileURI(path string) URI {
	return URI{Scheme: FileScheme, Path: path}
}

// IsPreview reports whether the URI names a preview document
func (u URI) IsPreview() bool {
	return u.Scheme == Scheme
}

// WithScheme returns a copy of the URI with another scheme
func (u URI) WithScheme(scheme string) URI {
	u.Scheme = scheme
	return u
}

// String renders the URI; file URIs use the file:// form
func (u URI) String() string {
	if u.Scheme == FileScheme {
		return (&url.URL{Scheme: FileScheme, Path: filepath.ToSlash(u.Path)}).String()
	}
	return u.Scheme + ":" + filepath.ToSlash(u.Path)
}

// ParseURI parses "scheme:path" and "file://" forms. A bare path is a file URI.
func ParseURI(raw string) (URI, error) {
	if raw == "" {
		return URI{}, errors.New("empty uri")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return URI{}, errors.Errorf("parsing uri %q: %w", raw, err)
		}
		return URI{Scheme: u.Scheme, Path: filepath.FromSlash(u.Path)}, nil
	}

	scheme, path, ok := strings.Cut(raw, ":")
	if !ok || scheme == "" || filepath.VolumeName(raw) != "" {
		return FileURI(raw), nil
	}
	return URI{Scheme: scheme, Path: filepath.FromSlash(path)}, nil
}
