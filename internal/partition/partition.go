// Package partition implements row-to-partition routing: deriving a
// partition identifier from a row's configured partition column, with a
// defaultPartitionKey fallback for null values, and a hash-bucket helper
// for distributing partitions across shards.
package partition

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"segstore/internal/engineerr"
)

// Derive returns the partition identifier for a row whose partition
// column holds value. A nil value falls back to defaultKey; if
// defaultKey is also empty, it returns engineerr.ErrNullPartitionValue
// so a dataset with no default partition rejects null partition values
// outright instead of silently routing them somewhere.
func Derive(value any, defaultKey string) (string, error) {
	if value == nil {
		if defaultKey == "" {
			return "", engineerr.ErrNullPartitionValue
		}
		return defaultKey, nil
	}
	return fmt.Sprint(value), nil
}

// HashBucket maps a partition identifier to one of numBuckets shards,
// using xxhash for a fast, well-distributed, non-cryptographic hash.
// A deployment that shards partitions across multiple store instances
// needs a stable mapping from partition identifier to shard; a single
// Store instance has no use for it on its own.
func HashBucket(partitionKey string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}
	sum := xxhash.Sum64String(partitionKey)
	return int(sum % uint64(numBuckets))
}
