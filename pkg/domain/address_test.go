package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{
			name:  "valid lowercase",
			input: "0xabcdef0123456789abcdef0123456789abcdef01",
			want:  Address("0xabcdef0123456789abcdef0123456789abcdef01"),
		},
		{
			name:  "mixed case normalized",
			input: "0xABCDEF0123456789abcdef0123456789ABCDEF01",
			want:  Address("0xabcdef0123456789abcdef0123456789abcdef01"),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "missing prefix", input: "abcdef0123456789abcdef0123456789abcdef01", wantErr: true},
		{name: "too short", input: "0xabcdef", wantErr: true},
		{name: "non-hex characters", input: "0xzzcdef0123456789abcdef0123456789abcdef01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddressIsZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())
	assert.True(t, Address("").IsZero())

	addr, err := ParseAddress("0xabcdef0123456789abcdef0123456789abcdef01")
	require.NoError(t, err)
	assert.False(t, addr.IsZero())
}

func TestParseHash32(t *testing.T) {
	valid := "0x" + "ab" + "cd" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"
	h, err := ParseHash32(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, h.String())

	_, err = ParseHash32("0xabcd")
	require.Error(t, err)

	_, err = ParseHash32("")
	require.Error(t, err)
}
