package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayout_ValidAsset(t *testing.T) {
	assert.Equal(t, 1.234, ParsePayout("1.234 HBD"))
	assert.Equal(t, 0.001, ParsePayout("0.001 HBD"))
	assert.Equal(t, 15.0, ParsePayout("15.000 HIVE"))
}

func TestParsePayout_EmptyString(t *testing.T) {
	assert.Equal(t, 0.0, ParsePayout(""))
	assert.Equal(t, 0.0, ParsePayout("   "))
}

func TestParsePayout_MalformedDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0.0, ParsePayout("garbage"))
	assert.Equal(t, 0.0, ParsePayout("HBD 1.234"))
	assert.Equal(t, 0.0, ParsePayout("1,234 HBD"))
}

func TestParsePayout_NoUnitSuffix(t *testing.T) {
	assert.Equal(t, 2.5, ParsePayout("2.5"))
}
