package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/pybundle/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	version.InitBinaryVersion()

	banner := version.String()
	assert.Contains(t, banner, "pybundle ")
	assert.Contains(t, banner, "commit: ")
	assert.NotEmpty(t, version.Version)
}
