package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid ascii", "hello", "hello"},
		{"valid czech", "Přehled zpráv", "Přehled zpráv"},
		{"invalid byte dropped", "ab\xffcd", "abcd"},
		{"literal replacement rune kept", "a�b", "a�b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeUTF8(tt.in))
		})
	}
}

func TestSanitizePtr(t *testing.T) {
	assert.Nil(t, sanitizePtr(nil))

	in := "x\xfey"
	got := sanitizePtr(&in)
	if assert.NotNil(t, got) {
		assert.Equal(t, "xy", *got)
	}
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "v", *nullable("v"))
}
