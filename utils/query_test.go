package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseSortBy(t *testing.T) {
	got := ParseSortBy([]string{"name,-createdAt", "password"})
	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "createdAt", Value: -1}}, got)
	assert.Empty(t, ParseSortBy(nil))
}

func TestParseInt64(t *testing.T) {
	assert.Equal(t, int64(20), ParseInt64("20", 50))
	assert.Equal(t, int64(50), ParseInt64("", 50))
	assert.Equal(t, int64(50), ParseInt64("-3", 50))
	assert.Equal(t, int64(50), ParseInt64("ten", 50))
}
