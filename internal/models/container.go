package models

import "time"

// Container is a blockchain post under a well-known account acting as a
// bucket whose replies are the actual feed content. Identity is Permlink,
// scoped to the container account.
type Container struct {
	Author    string
	Permlink  string
	Created   HiveTime
	FetchedAt time.Time
	Snaps     []Snap
}

// SnapCount returns the number of replies currently held by the container.
func (c *Container) SnapCount() int {
	return len(c.Snaps)
}

// ContainerRef is a container post as returned by the container listing
// query, before its replies have been fetched.
type ContainerRef struct {
	Author   string   `json:"author"`
	Permlink string   `json:"permlink"`
	Created  HiveTime `json:"created"`
}

// Cursor identifies where the next page of containers should start.
type Cursor struct {
	Author   string
	Permlink string
}

// Matches reports whether the given post identity is the cursor item.
// Bridge-style queries echo the cursor post as the first result, which
// callers must skip.
func (c Cursor) Matches(author, permlink string) bool {
	return c.Author == author && c.Permlink == permlink
}
