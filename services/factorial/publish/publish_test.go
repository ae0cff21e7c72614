// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifacts(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"summary_search.csv": "t,i,a,Time (ns)\n",
		"prompt_search.md":   "# search\n",
	}
	var out []string
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		out = append(out, p)
	}
	return out
}

func TestDirPublisher(t *testing.T) {
	files := artifacts(t)
	dst := t.TempDir()

	require.NoError(t, DirPublisher{Dir: dst}.Publish(context.Background(), "search", files))

	got, err := os.ReadFile(filepath.Join(dst, "search", "summary_search.csv"))
	require.NoError(t, err)
	assert.Equal(t, "t,i,a,Time (ns)\n", string(got))
	assert.FileExists(t, filepath.Join(dst, "search", "prompt_search.md"))
}

func TestDirPublisher_Errors(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, DirPublisher{Dir: t.TempDir()}.Publish(ctx, "b", nil), ErrNoFiles)

	err := DirPublisher{Dir: t.TempDir()}.Publish(ctx, "b", []string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type memObject struct {
	bytes.Buffer
	name        string
	contentType string
	closed      bool
	closeErr    error
}

func (m *memObject) Close() error {
	m.closed = true
	return m.closeErr
}

func TestGCSPublisher(t *testing.T) {
	files := artifacts(t)
	objects := map[string]*memObject{}
	p := NewGCSPublisherWithOpener("bench-bucket", "/runs/", func(ctx context.Context, object, ct string) io.WriteCloser {
		o := &memObject{name: object, contentType: ct}
		objects[object] = o
		return o
	})

	require.NoError(t, p.Publish(context.Background(), "search", files))
	require.Len(t, objects, 2)

	csv := objects["runs/search/summary_search.csv"]
	require.NotNil(t, csv)
	assert.True(t, csv.closed)
	assert.Equal(t, "text/csv", csv.contentType)
	assert.Equal(t, "t,i,a,Time (ns)\n", csv.String())

	md := objects["runs/search/prompt_search.md"]
	require.NotNil(t, md)
	assert.Equal(t, "text/markdown", md.contentType)

	assert.NoError(t, p.Close())
}

func TestGCSPublisher_CloseError(t *testing.T) {
	boom := errors.New("precondition failed")
	p := NewGCSPublisherWithOpener("b", "", func(ctx context.Context, object, ct string) io.WriteCloser {
		return &memObject{closeErr: boom}
	})

	err := p.Publish(context.Background(), "search", artifacts(t))
	assert.ErrorIs(t, err, boom)
}

func TestGCSPublisher_ObjectName(t *testing.T) {
	assert.Equal(t, "search/a.csv", NewGCSPublisherWithOpener("b", "", nil).ObjectName("search", "/x/a.csv"))
	assert.Equal(t, "p/q/search/a.csv", NewGCSPublisherWithOpener("b", "p/q/", nil).ObjectName("search", "a.csv"))
}

func TestNewGCSPublisher_Validation(t *testing.T) {
	_, err := NewGCSPublisher(context.Background(), "", "", "")
	assert.Error(t, err)

	_, err = NewGCSPublisher(context.Background(), "bucket", "", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a.csv"))
	assert.Equal(t, "text/plain", contentType("results_x.txt"))
	assert.Equal(t, "application/octet-stream", contentType("noext"))
}
