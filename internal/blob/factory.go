// Package blob selects an artifact store backend from the environment.
package blob

import (
	"context"
	"fmt"
	"os"

	"supportcore/internal/blob/core"
	"supportcore/internal/blob/fs"
	"supportcore/internal/blob/memory"
	"supportcore/internal/blob/s3"
)

// Environment variables:
//
//	SUPPORTCORE_BLOB_DRIVER=fs|s3|memory (default fs)
//	SUPPORTCORE_BLOB_FS_ROOT=<dir> (fs driver, default ./artifacts)
//	SUPPORTCORE_BLOB_S3_* (see the s3 package)

// Open returns the blob store named by SUPPORTCORE_BLOB_DRIVER.
func Open(ctx context.Context) (core.Store, error) {
	driver := os.Getenv("SUPPORTCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(core.DriverFilesystem)
	}
	switch core.Driver(driver) {
	case core.DriverFilesystem:
		return fs.New(os.Getenv("SUPPORTCORE_BLOB_FS_ROOT"))
	case core.DriverS3:
		return s3.OpenFromEnv(ctx)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
