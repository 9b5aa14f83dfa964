package lightjit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestRuntimeConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tests := []struct {
		name     string
		with     func(*RuntimeConfig) *RuntimeConfig
		expected *RuntimeConfig
	}{
		{
			name: "WithLogger",
			with: func(c *RuntimeConfig) *RuntimeConfig {
				return c.WithLogger(logger)
			},
			expected: &RuntimeConfig{logger: logger},
		},
	}
	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			input := &RuntimeConfig{}
			rc := tc.with(input)
			require.Equal(t, tc.expected, rc)
			// The source wasn't modified
			require.Equal(t, &RuntimeConfig{}, input)
		})
	}

	t.Run("WithLogger nil", func(t *testing.T) {
		rc := NewRuntimeConfig().WithLogger(nil)
		require.NotNil(t, rc.logger)
		require.False(t, rc.logger.Core().Enabled(zap.DebugLevel))
	})
}

func TestTranslateWithConfig_NilConfig(t *testing.T) {
	requireSupportedOSArch(t)

	m, err := TranslateWithConfig(newModule(addBody), nil)
	require.NoError(t, err)
	defer m.Close()

	actual, err := m.Execute(0, 40, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(42), actual)
}
