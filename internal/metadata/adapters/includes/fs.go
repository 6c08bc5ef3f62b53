// Package includes resolves xi:include targets against a local file tree.
package includes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// ErrRemoteInclude is returned for hrefs with a network scheme.
var ErrRemoteInclude = errors.New("remote includes are not supported")

// FSResolver reads include targets from an fs.FS. Absolute paths and
// file:// URLs are taken relative to the root of the tree.
type FSResolver struct {
	fsys fs.FS
}

// NewFSResolver returns a resolver reading from fsys.
func NewFSResolver(fsys fs.FS) *FSResolver {
	return &FSResolver{fsys: fsys}
}

// Resolve returns the content href points to.
func (r *FSResolver) Resolve(ctx context.Context, href string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := Clean(href)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read include %q: %w", href, err)
	}
	return data, nil
}

// Clean maps href to a name valid for fs.FS.
func Clean(href string) (string, error) {
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return "", fmt.Errorf("%w: %s", ErrRemoteInclude, href)
		}
		href = u.Path
	}
	name := strings.TrimPrefix(path.Clean("/"+href), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid include path %q", href)
	}
	return name, nil
}
