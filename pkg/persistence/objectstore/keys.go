package objectstore

import (
	"strings"
)

// KeyTransform reshapes a logical cache key before it's laid out on the
// bucket, so that keys sharing a monotonic prefix (ulids) don't all land
// in the same partition.
type KeyTransform interface {
	Transform(key string) string
}

// PassthroughTransform is for content-addressable keys (hashes) that are
// already well-distributed.
type PassthroughTransform struct{}

func (PassthroughTransform) Transform(key string) string { return key }

// ReverseKeyTransform reverses a time-ordered key (ulid) so its
// otherwise monotonically increasing prefix is dispersed.
type ReverseKeyTransform struct{}

func (ReverseKeyTransform) Transform(key string) string {
	r := []rune(key)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// distributionPrefix spreads load across partitions by prefixing the
// transformed key with its first three hex-char pairs as "XX/YY/ZZ/".
// Keys shorter than six characters are zero-padded on the right so the
// prefix is always well-formed.
func distributionPrefix(transformedKey string) string {
	padded := transformedKey
	for len(padded) < 6 {
		padded += "0"
	}
	six := padded[:6]
	return six[0:2] + "/" + six[2:4] + "/" + six[4:6] + "/"
}

// objectKey builds the full bucket key: optional test-isolation prefix,
// distribution prefix, then the transformed key itself.
func objectKey(transform KeyTransform, testPrefix, key string) string {
	transformed := transform.Transform(key)
	var b strings.Builder
	if testPrefix != "" {
		b.WriteString(strings.Trim(testPrefix, "/"))
		b.WriteByte('/')
	}
	b.WriteString(distributionPrefix(transformed))
	b.WriteString(transformed)
	return b.String()
}

// bucketName normalizes a cache name into a bucket name: underscores
// become hyphens, since S3 bucket names cannot contain underscores.
func bucketName(prefix, cacheName, suffix string) string {
	normalized := strings.ReplaceAll(cacheName, "_", "-")
	name := prefix + "-" + normalized
	if suffix != "" {
		name += "-" + suffix
	}
	return name
}
