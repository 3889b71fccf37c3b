package receipts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0"?>
<!DOCTYPE receipts>
<receipts>
  <receipt>
    <msgid>26567958</msgid>
    <reference>001efc31</reference>
    <msisdn>+44727204592</msisdn>
    <status>D</status>
    <timestamp>20080831T15:59:24</timestamp>
    <billed>NO</billed>
  </receipt>
  <receipt>
    <msgid>26750677</msgid>
    <reference>001f4041</reference>
    <msisdn>+44733476814</msisdn>
    <status>D</status>
    <timestamp>20080907T09:42:28</timestamp>
    <billed>YES</billed>
  </receipt>
</receipts>`

func TestParseReceipts(t *testing.T) {
	t.Run("parses the aggregator push body", func(t *testing.T) {
		receipts, err := ParseReceipts([]byte(sampleDoc))
		require.NoError(t, err)
		require.Len(t, receipts, 2)

		assert.Equal(t, "26567958", receipts[0].MsgID)
		assert.Equal(t, "001efc31", receipts[0].Reference)
		assert.Equal(t, "+44727204592", receipts[0].MSISDN)
		assert.Equal(t, "D", receipts[0].Status)
		assert.Equal(t, "20080831T15:59:24", receipts[0].Timestamp)
		assert.Equal(t, "NO", receipts[0].Billed)

		assert.Equal(t, "001f4041", receipts[1].Reference)
		assert.Equal(t, "YES", receipts[1].Billed)
	})

	t.Run("empty document yields no receipts", func(t *testing.T) {
		receipts, err := ParseReceipts([]byte(`<receipts></receipts>`))
		require.NoError(t, err)
		assert.Len(t, receipts, 0)
	})

	t.Run("malformed document is rejected", func(t *testing.T) {
		_, err := ParseReceipts([]byte(`<receipts><receipt>`))
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("non-xml body is rejected", func(t *testing.T) {
		_, err := ParseReceipts([]byte(`{"receipts": []}`))
		assert.ErrorIs(t, err, ErrParse)
	})
}
