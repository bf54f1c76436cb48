package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionsPendingBinding(t *testing.T) {
	records := Instructions("tok123", "203.0.113.10", "shops.boltshop.io", false)

	require.Len(t, records, 1)
	assert.Equal(t, "TXT", records[0].Type)
	assert.Equal(t, RecordPrefix, records[0].Host)
	assert.Equal(t, "tok123", records[0].Value)
}

func TestInstructionsVerifiedBinding(t *testing.T) {
	records := Instructions("tok123", "203.0.113.10", "shops.boltshop.io", true)

	require.Len(t, records, 3)

	byType := make(map[string]DNSRecord)
	for _, r := range records {
		byType[r.Type] = r
	}

	assert.Equal(t, "@", byType["A"].Host)
	assert.Equal(t, "203.0.113.10", byType["A"].Value)
	assert.Equal(t, "www", byType["CNAME"].Host)
	assert.Equal(t, "shops.boltshop.io", byType["CNAME"].Value)
}
