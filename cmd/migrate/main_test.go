package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SQLiteUpWithSeed(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"--driver", "sqlite", "--dsn", ":memory:", "--seed", "2500", "up"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Schema created")
	assert.Contains(t, out.String(), "with 2500 units in 3 pools")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing command", []string{"--driver", "sqlite", "--dsn", ":memory:"}},
		{"versioned command on sqlite", []string{"--driver", "sqlite", "--dsn", ":memory:", "down"}},
		{"unknown flag", []string{"--nope", "up"}},
		{"unknown driver", []string{"--driver", "oracle", "--retries", "1", "up"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out))
		})
	}
}
