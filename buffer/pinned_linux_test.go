//go:build linux

package buffer

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	. "github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPinnedAboveMemlockLimit(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root is not bound by RLIMIT_MEMLOCK")
	}

	var limit unix.Rlimit
	NoError(t, unix.Getrlimit(unix.RLIMIT_MEMLOCK, &limit))
	if limit.Cur == unix.RLIM_INFINITY || limit.Cur > 1<<30 {
		t.Skipf("RLIMIT_MEMLOCK too high to exceed: %d", limit.Cur)
	}

	n := int(limit.Cur/ByteWidth) + 4096
	b, err := NewHost(n, true)
	if err == nil {
		b.Release()
		t.Skip("page-locking is not enforced on this system")
	}
	True(t, errors.Is(err, ErrAllocation), "%v", err)
}
