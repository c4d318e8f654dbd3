package initdata

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	raw := "user=%7B%22id%22%3A1234567890%2C%22first_name%22%3A%22Ann%22%7D" +
		"&auth_date=1700000000" +
		"&query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
		"&hash=abcdef0123456789"

	d, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "abcdef0123456789", d.Hash)
	assert.Empty(t, d.Signature)
	assert.Equal(t, time.Unix(1700000000, 0), d.AuthDate)
	assert.Equal(t, int64(1234567890), d.User.ID)
	assert.Equal(t, "Ann", d.User.FirstName)
}

func TestParse_Signature(t *testing.T) {
	raw := "auth_date=1700000000&hash=aa&signature=c2ln"

	d, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "c2ln", d.Signature)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"missing hash", "auth_date=1700000000&user=%7B%22id%22%3A1%7D"},
		{"missing auth_date", "hash=aa&user=%7B%22id%22%3A1%7D"},
		{"non-numeric auth_date", "hash=aa&auth_date=yesterday"},
		{"field without value", "hash=aa&auth_date"},
		{"bad value encoding", "hash=aa&auth_date=1700000000&user=%zz"},
		{"invalid user json", "hash=aa&auth_date=1700000000&user=%7Bnope"},
		{"too long", "hash=aa&auth_date=1700000000&pad=" + strings.Repeat("x", 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCheckString(t *testing.T) {
	raw := "user=%7B%22id%22%3A1%7D&auth_date=1700000000&query_id=QQ&hash=aa&signature=c2ln"

	d, err := Parse(raw)
	require.NoError(t, err)

	// Sorted by key, proof fields excluded, no trailing newline.
	want := "auth_date=1700000000\nquery_id=QQ\nuser={\"id\":1}"
	assert.Equal(t, want, d.CheckString())
}

func TestCheckString_SingleField(t *testing.T) {
	d, err := Parse("auth_date=1700000000&hash=aa")
	require.NoError(t, err)

	assert.Equal(t, "auth_date=1700000000", d.CheckString())
}
