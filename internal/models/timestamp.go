package models

import (
	json "github.com/goccy/go-json"
	"strings"
	"time"
)

// hiveTimeLayout is the bare timestamp format emitted by Hive nodes.
// Timestamps carry no zone designator and are implicitly UTC.
const hiveTimeLayout = "2006-01-02T15:04:05"

type HiveTime struct {
	time.Time
}

func NewHiveTime(t time.Time) HiveTime {
	return HiveTime{Time: t.UTC()}
}

func (t *HiveTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	// Some gateways append a Z suffix, some do not.
	parsed, err := time.Parse(hiveTimeLayout, strings.TrimSuffix(s, "Z"))
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

func (t HiveTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(hiveTimeLayout))
}
