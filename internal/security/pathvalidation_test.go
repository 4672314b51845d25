package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainedIn(t *testing.T) {
	tmp := t.TempDir()
	safe := filepath.Join(tmp, "safe")
	outside := filepath.Join(tmp, "outside")
	require.NoError(t, os.MkdirAll(safe, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(safe, "link")))

	tests := []struct {
		name string
		path string
		ok   bool
	}{
		{"dir itself", safe, true},
		{"new file", filepath.Join(safe, "plot.png"), true},
		{"new nested file", filepath.Join(safe, "a", "b", "plot.png"), true},
		{"dot dot", filepath.Join(safe, "..", "outside", "plot.png"), false},
		{"sibling", filepath.Join(outside, "plot.png"), false},
		{"through symlink", filepath.Join(safe, "link", "plot.png"), false},
		{"prefix is not containment", safe + "-evil", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ContainedIn(tt.path, safe)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOutsideAllowedDirs)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	assert.NoError(t, ValidateOutputPath(filepath.Join(os.TempDir(), "plots", "x.png")))
	assert.NoError(t, ValidateOutputPath("plots/x.png"))

	assert.ErrorIs(t, ValidateOutputPath("/etc/swerved/x.png"), ErrOutsideAllowedDirs)
	assert.NoError(t, ValidateOutputPath("/etc/swerved/x.png", "/etc/swerved"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                    "unknown",
		"bench run #3":        "bench_run_3",
		"../../etc/passwd":    "etc_passwd",
		"field-test.2026":     "field-test.2026",
		"a//b\\c":             "a_b_c",
		"___":                 "unknown",
		"ünïcode":             "n_code",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
