// Package gcs archives cycle reports as JSON objects in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
)

const maxConcurrentReads = 20

// Store keeps reports under <prefix><cycle_id>.json.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ archive.Archive = (*Store)(nil)

// NewStore creates a GCS-backed archive. Credentials come from the
// environment (GOOGLE_APPLICATION_CREDENTIALS) unless opts override them.
func NewStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) object(cycleID string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + archive.ObjectName(cycleID))
}

// Put uploads the report, replacing any earlier report for the same cycle.
func (s *Store) Put(ctx context.Context, report *cycle.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	w := s.object(report.CycleID).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Get downloads the report of one cycle.
func (s *Store) Get(ctx context.Context, cycleID string) (*cycle.Report, error) {
	return s.read(ctx, s.object(cycleID), cycleID)
}

func (s *Store) read(ctx context.Context, obj *storage.ObjectHandle, cycleID string) (*cycle.Report, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", archive.ErrReportNotFound, cycleID)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report cycle.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List fetches every report under the prefix in parallel, newest first.
func (s *Store) List(ctx context.Context) ([]*cycle.Report, error) {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		reports  = make([]*cycle.Report, 0, len(names))
	)
	semaphore := make(chan struct{}, maxConcurrentReads)

	for _, name := range names {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			report, err := s.read(ctx, bucket.Object(name), name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Objects deleted between listing and reading are skipped.
				if !errors.Is(err, archive.ErrReportNotFound) && firstErr == nil {
					firstErr = err
				}
				return
			}
			reports = append(reports, report)
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	archive.SortReports(reports)
	return reports, nil
}
