package statemachine

import "time"

// minutesSince returns the elapsed minutes between start and now as a
// float64, matching the "duration_mins equals elapsed minutes within
// 1-minute rounding" testable property.
func minutesSince(start time.Time, now time.Time) float64 {
	return now.Sub(start).Minutes()
}

// setIfUnset writes value into *dst only if *dst is currently nil, giving
// the COALESCE semantics the timing buckets require: once a bucket is set
// it is never overwritten by a later upsert.
func setIfUnset(dst **float64, value float64) {
	if *dst != nil {
		return
	}
	v := value
	*dst = &v
}
