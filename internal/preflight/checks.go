package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"github.com/leafcam/leafcam/internal/daemon"
	"github.com/leafcam/leafcam/internal/severity"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has at least minFree
// bytes available. Low space is advisory.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free", humanize.Bytes(free))
	if free < minFree {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s (need %s)", detail, humanize.Bytes(minFree))}
	}
	return Result{Name: name, Passed: true, Advisory: true, Detail: detail}
}

// CheckSidecar verifies leafcamd answers a status command.
func CheckSidecar(ctx context.Context, socketPath string) Result {
	const name = "Sidecar"
	if socketPath == "" {
		return Result{Name: name, Detail: "missing socket path"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := daemon.ConnectContext(checkCtx, socketPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", socketPath, err)}
	}
	defer client.Close()

	resp, err := client.Status(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status failed (%v)", err)}
	}
	detail := fmt.Sprintf("camera %s, model %s", orUnknown(resp.Camera), orUnknown(resp.Model))
	if resp.Labels != nil && *resp.Labels != severity.NumClasses {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: model reports %d labels, want %d)",
			detail, *resp.Labels, severity.NumClasses)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
