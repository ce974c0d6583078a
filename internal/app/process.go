package app

import (
	"context"
	"fmt"
	"os"

	goprocess "github.com/shirou/gopsutil/v4/process"
)

// processRSS reads resident memory of the current process.
// Params: ctx for cancellation.
// Returns: RSS in bytes or process stat error.
func processRSS(ctx context.Context) (uint64, error) {
	proc, err := goprocess.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("open self process: %w", err)
	}

	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read self memory: %w", err)
	}
	return info.RSS, nil
}
