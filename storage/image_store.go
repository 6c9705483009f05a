// Package storage persists uploaded menu item images.
//
// Every store hands out paths of the form "uploads/<unix-millis>-<name>".
// Those paths are what gets saved on the menu item row and are also the URL
// path the asset is served under.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// PathPrefix is the leading segment of every stored image path.
const PathPrefix = "uploads"

var ErrImageNotFound = errors.New("image not found")

// ImageStore saves, removes and opens image assets.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader, size int64, originalName string) (string, error)
	Delete(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (*Object, error)
}

// Object is an opened asset. Callers must Close it.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
}

// clock is swapped in tests.
var clock = time.Now

func storedName(originalName string) string {
	return fmt.Sprintf("%d-%s", clock().UnixMilli(), cleanName(originalName))
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

func storedPath(name string) string {
	return path.Join(PathPrefix, name)
}

// nameFromPath returns the bare filename for a stored path, or false if the
// path does not point inside the uploads prefix.
func nameFromPath(p string) (string, bool) {
	p = strings.TrimPrefix(p, "/")
	if !strings.HasPrefix(p, PathPrefix+"/") {
		return "", false
	}
	name := strings.TrimPrefix(p, PathPrefix+"/")
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
