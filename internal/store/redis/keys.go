package redis

import "fmt"

const (
	// KeyPrefixRecord is the prefix for record keys
	KeyPrefixRecord = "stash:record:"
	// KeyAllRecords is the key for the set of all record IDs
	KeyAllRecords = "stash:records:all"
	// KeyDedup is the hash of dedup key -> record ID
	KeyDedup = "stash:dedup"

	// KeyCategories holds the JSON category list
	KeyCategories = "stash:meta:categories"
	// KeySettings holds the JSON settings object
	KeySettings = "stash:meta:settings"
	// KeySavedSearches is the hash of saved search ID -> JSON
	KeySavedSearches = "stash:meta:searches"
)

// RecordKey returns the Redis key for a record by ID
func RecordKey(id string) string {
	return KeyPrefixRecord + id
}

// ExtractRecordID extracts the record ID from a Redis key
func ExtractRecordID(key string) (string, error) {
	if len(key) <= len(KeyPrefixRecord) || key[:len(KeyPrefixRecord)] != KeyPrefixRecord {
		return "", fmt.Errorf("invalid record key: %s", key)
	}
	return key[len(KeyPrefixRecord):], nil
}
