package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFullVersion(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "dev"
	assert.Equal(t, "dev (commit: "+Commit+")", GetFullVersion())

	Version = "1.2.0"
	assert.True(t, strings.HasPrefix(GetFullVersion(), "1.2.0 (commit: "))
}

func TestUserAgent(t *testing.T) {
	assert.True(t, strings.HasPrefix(UserAgent(), "scadawatch/"+Version+" ("))
}
