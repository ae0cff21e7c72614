// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package publish copies summary artifacts to shared locations.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrNoFiles is returned when Publish is called without files.
var ErrNoFiles = errors.New("no files to publish")

// Publisher copies the artifact files of a bench somewhere.
type Publisher interface {
	// Publish copies files under a location named after bench. Files keep
	// their base names.
	Publish(ctx context.Context, bench string, files []string) error
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

// DirPublisher copies files into {Dir}/{bench}/.
type DirPublisher struct {
	Dir string
}

// Publish implements Publisher.
func (d DirPublisher) Publish(ctx context.Context, bench string, files []string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	dst := filepath.Join(d.Dir, bench)
	if err := os.MkdirAll(dst, 0750); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(f, filepath.Join(dst, filepath.Base(f))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Google Cloud Storage
// -----------------------------------------------------------------------------

// ObjectOpener opens a writer for an object of a bucket. The object is
// committed when the writer is closed without error.
type ObjectOpener func(ctx context.Context, object, contentType string) io.WriteCloser

// GCSPublisher uploads files to gs://{bucket}/{prefix}/{bench}/{file}.
type GCSPublisher struct {
	bucket string
	prefix string
	client *storage.Client
	open   ObjectOpener
	logger *slog.Logger
}

// NewGCSPublisher creates a storage client for bucket. An empty
// credentialsFile uses application default credentials.
func NewGCSPublisher(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSPublisher, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}

	p := NewGCSPublisherWithOpener(bucket, prefix, func(ctx context.Context, object, ct string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = ct
		w.CacheControl = "no-cache, no-store, must-revalidate"
		return w
	})
	p.client = client
	return p, nil
}

// NewGCSPublisherWithOpener creates a publisher over an existing opener.
func NewGCSPublisherWithOpener(bucket, prefix string, open ObjectOpener) *GCSPublisher {
	return &GCSPublisher{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		open:   open,
		logger: slog.Default(),
	}
}

// SetLogger replaces the logger. Nil values are ignored.
func (g *GCSPublisher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// ObjectName returns the object name of a file.
func (g *GCSPublisher) ObjectName(bench, file string) string {
	return path.Join(g.prefix, bench, filepath.Base(file))
}

// Publish implements Publisher.
func (g *GCSPublisher) Publish(ctx context.Context, bench string, files []string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		object := g.ObjectName(bench, f)
		if err := g.upload(ctx, f, object); err != nil {
			return err
		}
		g.logger.Info("artifact uploaded", "file", f, "url", fmt.Sprintf("gs://%s/%s", g.bucket, object))
	}
	return nil
}

func (g *GCSPublisher) upload(ctx context.Context, src, object string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	w := g.open(ctx, object, contentType(src))
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %s to gs://%s/%s: %w", src, g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close closes the storage client, if owned.
func (g *GCSPublisher) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

var (
	_ Publisher = DirPublisher{}
	_ Publisher = (*GCSPublisher)(nil)
)
