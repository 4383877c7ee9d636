package gcs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"github.com/rezkam/atlas/internal/infrastructure/archive"
	"github.com/rezkam/atlas/internal/infrastructure/archive/compliance"
)

func TestGCSStore_Compliance(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set, skipping GCS tests")
	}

	compliance.RunArchiveComplianceTest(t, func() (archive.Archive, func()) {
		ctx := context.Background()
		// A unique prefix per subtest keeps runs isolated within a shared bucket.
		store, err := NewStore(ctx, bucket, "atlas-test-"+uuid.NewString())
		require.NoError(t, err)

		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			defer store.Close()

			b := store.client.Bucket(bucket)
			it := b.Objects(ctx, &storage.Query{Prefix: store.prefix})
			for {
				attrs, err := it.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					t.Logf("Warning: failed to list objects during cleanup: %v", err)
					break
				}
				if err := b.Object(attrs.Name).Delete(ctx); err != nil {
					t.Logf("Warning: failed to delete object %s: %v", attrs.Name, err)
				}
			}
		}
		return store, cleanup
	})
}
