package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	Version, GitCommit, BuildTime = "1.2.3", "abc123", "2024-01-01"
	assert.Equal(t, "docscan 1.2.3 (commit abc123, built 2024-01-01)", String())
}
