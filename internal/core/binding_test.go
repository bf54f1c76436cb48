package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "example.com", "example.com", false},
		{"uppercase", "Example.COM", "example.com", false},
		{"whitespace", "  shop.example.com  ", "shop.example.com", false},
		{"subdomain", "store.shop.example.co.uk", "store.shop.example.co.uk", false},
		{"hyphenated", "my-store.example.com", "my-store.example.com", false},
		{"empty", "", "", true},
		{"single label", "localhost", "", true},
		{"trailing dot", "example.com.", "", true},
		{"ip address", "192.168.1.1", "", true},
		{"wildcard", "*.example.com", "", true},
		{"empty label", "example..com", "", true},
		{"leading hyphen", "-store.example.com", "", true},
		{"trailing hyphen", "store-.example.com", "", true},
		{"numeric tld", "example.123", "", true},
		{"one letter tld", "example.x", "", true},
		{"underscore", "my_store.example.com", "", true},
		{"too long", strings.Repeat("a", 250) + ".example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindValidation, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoutable(t *testing.T) {
	tests := []struct {
		name    string
		state   BindingState
		enabled bool
		want    bool
	}{
		{"verified and enabled", StateVerified, true, true},
		{"verified but disabled", StateVerified, false, false},
		{"pending", StatePending, false, false},
		{"locked", StateLocked, false, false},
		{"pending with stale enabled flag", StatePending, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &DomainBinding{State: tt.state, Enabled: tt.enabled}
			assert.Equal(t, tt.want, b.Routable())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(E(KindConflict, "taken")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))

	wrapped := WrapE(KindRateLimit, assert.AnError, "capped")
	assert.Equal(t, KindRateLimit, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, assert.AnError)
}
