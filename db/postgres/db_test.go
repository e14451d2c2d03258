package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	testCases := []struct {
		name     string
		stmt     string
		expected string
	}{
		{
			name:     "no placeholders",
			stmt:     "SELECT * FROM traces",
			expected: "SELECT * FROM traces",
		},
		{
			name:     "single placeholder",
			stmt:     "SELECT * FROM traces WHERE id = ?",
			expected: "SELECT * FROM traces WHERE id = $1",
		},
		{
			name:     "numbered in order",
			stmt:     "INSERT INTO sessions(id, token_jti, scopes) VALUES (?,?,?)",
			expected: "INSERT INTO sessions(id, token_jti, scopes) VALUES ($1,$2,$3)",
		},
		{
			name:     "question mark inside literal is untouched",
			stmt:     "SELECT * FROM traces WHERE path = '/health?deep' AND ip = ?",
			expected: "SELECT * FROM traces WHERE path = '/health?deep' AND ip = $1",
		},
		{
			name:     "placeholders on both sides of a literal",
			stmt:     "UPDATE traces SET metadata = ? WHERE error = '?' AND id = ?",
			expected: "UPDATE traces SET metadata = $1 WHERE error = '?' AND id = $2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Rebind(tc.stmt))
		})
	}
}

func TestDriverRegistered(t *testing.T) {
	assert.NotEmpty(t, DRIVER)
}
