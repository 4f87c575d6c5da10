package utils

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// SortableKeys are the fields list endpoints accept in sortBy.
var SortableKeys = map[string]bool{
	"name":      true,
	"code":      true,
	"createdAt": true,
	"updatedAt": true,
}

// ParseSortBy turns sortBy values like "name" or "-createdAt" into a Mongo
// sort document. Unknown keys are skipped.
func ParseSortBy(values []string) bson.D {
	sort := bson.D{}
	for _, value := range values {
		for _, key := range strings.Split(value, ",") {
			key = strings.TrimSpace(key)
			dir := 1
			if strings.HasPrefix(key, "-") {
				dir = -1
				key = key[1:]
			}
			if !SortableKeys[key] {
				continue
			}
			sort = append(sort, bson.E{Key: key, Value: dir})
		}
	}
	return sort
}

func ParseInt64(value string, defaultValue int64) int64 {
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
