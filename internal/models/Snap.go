package models

// Snap is a single user-authored post or reply, represented as a blockchain
// comment. Identity is (Author, Permlink), globally unique and immutable.
// Engagement fields (NetVotes, Children, payout values) are refreshed on
// re-fetch and are not authoritative locally.
type Snap struct {
	Author             string   `json:"author"`
	Permlink           string   `json:"permlink"`
	ParentAuthor       string   `json:"parent_author"`
	ParentPermlink     string   `json:"parent_permlink"`
	Body               string   `json:"body"`
	Created            HiveTime `json:"created"`
	NetVotes           int      `json:"net_votes"`
	Children           int      `json:"children"`
	PendingPayoutValue string   `json:"pending_payout_value"`
	TotalPayoutValue   string   `json:"total_payout_value"`
	CuratorPayoutValue string   `json:"curator_payout_value"`
	JSONMetadata       string   `json:"json_metadata,omitempty"`
}

type SnapKey struct {
	Author   string
	Permlink string
}

// Key returns the snap's globally unique identity.
func (s *Snap) Key() SnapKey {
	return SnapKey{Author: s.Author, Permlink: s.Permlink}
}

// PayoutTotal sums all payout fields of the snap. Missing or malformed
// fields count as zero.
func (s *Snap) PayoutTotal() float64 {
	return ParsePayout(s.PendingPayoutValue) +
		ParsePayout(s.TotalPayoutValue) +
		ParsePayout(s.CuratorPayoutValue)
}
