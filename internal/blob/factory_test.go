package blob

import (
	"context"
	"testing"

	"supportcore/internal/blob/core"
)

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("SUPPORTCORE_BLOB_DRIVER", "")
	t.Setenv("SUPPORTCORE_BLOB_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
}

func TestOpenMemory(t *testing.T) {
	t.Setenv("SUPPORTCORE_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("SUPPORTCORE_BLOB_DRIVER", "s3")
	t.Setenv("SUPPORTCORE_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("s3 driver without bucket must fail")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("SUPPORTCORE_BLOB_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("unknown driver must fail")
	}
}
