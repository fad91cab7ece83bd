package models

// DurationBucket is a coarse category derived from a recipe's total time.
type DurationBucket string

const (
	// BucketQuick is for recipes under 30 minutes.
	BucketQuick DurationBucket = "quick"
	// BucketMedium is for recipes from 30 to 60 minutes inclusive.
	BucketMedium DurationBucket = "medium"
	// BucketLong is for recipes over 60 minutes.
	BucketLong DurationBucket = "long"
)

// Bucket thresholds in minutes.
const (
	QuickUnder  = 30
	MediumUntil = 60
)

// DurationBuckets lists every bucket in ascending order.
var DurationBuckets = []DurationBucket{BucketQuick, BucketMedium, BucketLong}

// BucketFor maps a total duration in minutes to its bucket.
func BucketFor(total int) DurationBucket {
	switch {
	case total < QuickUnder:
		return BucketQuick
	case total <= MediumUntil:
		return BucketMedium
	default:
		return BucketLong
	}
}

// BucketsWithin returns the buckets that qualify for a maximum-time filter:
// quick always qualifies, medium only when maxMinutes >= 30, long never.
func BucketsWithin(maxMinutes int) []DurationBucket {
	if maxMinutes >= QuickUnder {
		return []DurationBucket{BucketQuick, BucketMedium}
	}
	return []DurationBucket{BucketQuick}
}
