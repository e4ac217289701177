package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnap_Key(t *testing.T) {
	s := Snap{Author: "alice", Permlink: "re-snaps-1"}
	assert.Equal(t, SnapKey{Author: "alice", Permlink: "re-snaps-1"}, s.Key())
}

func TestSnap_DecodeCondenserPayload(t *testing.T) {
	raw := `{
		"author": "alice",
		"permlink": "re-peaksnaps-abc",
		"parent_author": "peak.snaps",
		"parent_permlink": "snaps-container-42",
		"body": "gm hive!",
		"created": "2024-05-01T10:30:00",
		"net_votes": 7,
		"children": 2,
		"pending_payout_value": "0.123 HBD",
		"total_payout_value": "0.000 HBD",
		"curator_payout_value": "0.000 HBD",
		"json_metadata": "{\"app\":\"snaps/1.0\"}"
	}`

	var s Snap
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, "alice", s.Author)
	assert.Equal(t, "peak.snaps", s.ParentAuthor)
	assert.Equal(t, "snaps-container-42", s.ParentPermlink)
	assert.Equal(t, 7, s.NetVotes)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), s.Created.Time)
	assert.InDelta(t, 0.123, s.PayoutTotal(), 1e-9)
}

func TestSnap_PayoutTotal_SumsAllFields(t *testing.T) {
	s := Snap{
		PendingPayoutValue: "0.100 HBD",
		TotalPayoutValue:   "1.000 HBD",
		CuratorPayoutValue: "0.250 HBD",
	}
	assert.InDelta(t, 1.35, s.PayoutTotal(), 1e-9)
}

func TestSnap_PayoutTotal_MalformedFieldCountsZero(t *testing.T) {
	s := Snap{
		PendingPayoutValue: "not-a-number",
		TotalPayoutValue:   "1.000 HBD",
	}
	assert.InDelta(t, 1.0, s.PayoutTotal(), 1e-9)
}

func TestCursor_Matches(t *testing.T) {
	c := Cursor{Author: "peak.snaps", Permlink: "snaps-container-42"}
	assert.True(t, c.Matches("peak.snaps", "snaps-container-42"))
	assert.False(t, c.Matches("peak.snaps", "snaps-container-41"))
	assert.False(t, c.Matches("other", "snaps-container-42"))
}
