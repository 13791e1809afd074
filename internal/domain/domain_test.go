package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoomID(t *testing.T) {
	valid := []struct {
		raw  string
		want RoomID
	}{
		{"42", "42"},
		{" 7 ", "7"},
		{"007", "7"},
		{"18446744073709551615", "18446744073709551615"},
	}
	for _, tc := range valid {
		got, err := ParseRoomID(tc.raw)
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got)
	}

	for _, raw := range []string{"", "abc", "0", "-3", "+3", "1.0", "1e3", "42abc", "18446744073709551616"} {
		_, err := ParseRoomID(raw)
		require.ErrorIs(t, err, ErrInvalidRoomID, raw)
	}
}

func TestRoomIDUint(t *testing.T) {
	id, err := ParseRoomID("1234")
	require.NoError(t, err)
	require.Equal(t, uint64(1234), id.Uint())
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("  u-1 ", "alice")
	require.NoError(t, err)
	require.Equal(t, UserID("u-1"), u.ID)
	require.Equal(t, "alice", NewMember(u).Username)

	_, err = NewUser(" ", "x")
	require.ErrorIs(t, err, ErrUserIDEmpty)
	_, err = NewUser(strings.Repeat("x", MaxUserIDLen+1), "")
	require.ErrorIs(t, err, ErrUserIDTooLong)
	_, err = NewUser("u", strings.Repeat("n", MaxUsernameLen+1))
	require.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestParseShape(t *testing.T) {
	shape, ok := ParseShape(`{"shape":{"type":"rect","x":1,"y":2}}`)
	require.True(t, ok)
	require.JSONEq(t, `{"type":"rect","x":1,"y":2}`, string(shape))

	for _, payload := range []string{
		"hello",
		"",
		`{}`,
		`{"shape":null}`,
		`{"shape":{}}`,
		`{"shape":{"type":""}}`,
		`{"shape":{"type":7}}`,
		`{"shape":"circle"}`,
		`["shape"]`,
	} {
		_, ok := ParseShape(payload)
		require.False(t, ok, payload)
	}
}
