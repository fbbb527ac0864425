package targets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "dedupes and sorts",
			input:    []string{"10.0.0.2", "10.0.0.1", "10.0.0.2"},
			expected: []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:     "trims whitespace and drops empties",
			input:    []string{"  10.0.0.1 ", "", "   ", "web.example.com"},
			expected: []string{"10.0.0.1", "web.example.com"},
		},
		{
			name:     "empty input",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestFileResolver(t *testing.T) {
	t.Run("reads one target per line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.txt")
		content := "10.0.0.2\nweb.example.com\n\n10.0.0.1\n10.0.0.2\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		resolver := NewFileResolver(path)
		targets, err := resolver.Resolve(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "web.example.com"}, targets)
	})

	t.Run("missing file returns typed error", func(t *testing.T) {
		resolver := NewFileResolver(filepath.Join(t.TempDir(), "nope.txt"))
		targets, err := resolver.Resolve(context.Background())

		require.Error(t, err)
		assert.Nil(t, targets)
		assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))
	})

	t.Run("empty file yields empty set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.txt")
		require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0600))

		targets, err := NewFileResolver(path).Resolve(context.Background())

		require.NoError(t, err)
		assert.Empty(t, targets)
	})
}

func TestStaticResolver(t *testing.T) {
	resolver := NewStaticResolver([]string{"10.0.0.3", "10.0.0.1", "10.0.0.3", ""})
	targets, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.3"}, targets)
}
