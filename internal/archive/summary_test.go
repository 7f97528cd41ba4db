package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummary(t *testing.T) {
	a := Summary{Total: 10, Skipped: 4, Downloaded: 5, Failed: 1, Bytes: 1500, Elapsed: time.Second}
	b := Summary{Total: 2, Downloaded: 2, Bytes: 500}

	sum := a.Add(b)
	assert.Equal(t, Summary{Total: 12, Skipped: 4, Downloaded: 7, Failed: 1, Bytes: 2000, Elapsed: time.Second}, sum)
	assert.False(t, sum.OK())
	assert.True(t, b.OK())
	assert.Equal(t, "12 tiles: 7 downloaded (2.0 kB), 4 skipped, 1 failed in 1s", sum.String())
}
