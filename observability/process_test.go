package observability

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrentProcess_Reports_Own_Pid(t *testing.T) {
	req := require.New(t)

	stats, _ := CurrentProcess()

	req.Equal(int32(os.Getpid()), stats.PID)
	req.Positive(stats.Goroutines)
	req.NotEmpty(stats.Uptime)
}
