package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimStatement(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"semicolon then whitespace", "SELECT id FROM signups;\n", "SELECT id FROM signups"},
		{"whitespace before semicolon", "  SELECT 1 ;  ", "SELECT 1"},
		{"semicolon inside literal survives", "SELECT ';' AS sep", "SELECT ';' AS sep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimStatement(tt.query))
		})
	}
}
