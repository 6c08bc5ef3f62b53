package includes

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSResolver(t *testing.T) {
	fsys := fstest.MapFS{
		"feeds/part.xml": {Data: []byte(`<md:EntityDescriptor/>`)},
	}
	r := NewFSResolver(fsys)
	ctx := context.Background()

	t.Run("relative path", func(t *testing.T) {
		data, err := r.Resolve(ctx, "feeds/part.xml")
		require.NoError(t, err)
		assert.Equal(t, `<md:EntityDescriptor/>`, string(data))
	})

	t.Run("absolute path and file URL", func(t *testing.T) {
		for _, href := range []string{"/feeds/part.xml", "file:///feeds/part.xml"} {
			_, err := r.Resolve(ctx, href)
			assert.NoError(t, err, href)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := r.Resolve(ctx, "feeds/none.xml")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("remote href", func(t *testing.T) {
		_, err := r.Resolve(ctx, "https://example.org/md.xml")
		assert.ErrorIs(t, err, ErrRemoteInclude)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Resolve(cctx, "feeds/part.xml")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClean(t *testing.T) {
	tests := []struct {
		href    string
		want    string
		wantErr bool
	}{
		{href: "a/b.xml", want: "a/b.xml"},
		{href: "/a/./b.xml", want: "a/b.xml"},
		{href: "../../etc/passwd", want: "etc/passwd"},
		{href: "file:///x/y.xml", want: "x/y.xml"},
		{href: "/", wantErr: true},
		{href: "http://example.org/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, err := Clean(tt.href)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
