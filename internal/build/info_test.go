package build_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/formrelay/internal/build"
)

func TestString(t *testing.T) {
	orig := build.Version
	t.Cleanup(func() { build.Version = orig })
	build.Version = "v1.2.3"

	s := build.String()
	assert.Contains(t, s, "formrelay v1.2.3")
	assert.Contains(t, s, runtime.Version())
	assert.Equal(t, "formrelay/v1.2.3", build.UserAgent())
}
