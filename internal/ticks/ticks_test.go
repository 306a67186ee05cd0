package ticks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromTime_ReferenceVector(t *testing.T) {
	got := FromTime(time.Date(1999, time.November, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(630770112000000000), got)
}

func TestFromTime_Epoch(t *testing.T) {
	assert.Equal(t, int64(0), FromTime(Epoch))
	assert.Equal(t, int64(PerSecond), FromTime(Epoch.Add(time.Second)))
}

func TestFromTime_IgnoresLocation(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	local := time.Date(1999, time.November, 1, 0, 0, 0, 0, kst)
	assert.Equal(t, int64(630770112000000000), FromTime(local))
}

func TestFromTime_TruncatesSubMicrosecond(t *testing.T) {
	base := time.Date(2025, time.December, 2, 10, 30, 0, 0, time.UTC)
	withNanos := base.Add(1234*time.Microsecond + 999*time.Nanosecond)
	assert.Equal(t, FromTime(base)+12340, FromTime(withNanos))
}

func TestToTime_ReferenceVector(t *testing.T) {
	got := ToTime(630770112000000000)
	assert.True(t, got.Equal(time.Date(1999, time.November, 1, 0, 0, 0, 0, time.UTC)), "got %v", got)
}

func TestToTime_DiscardsRemainder(t *testing.T) {
	assert.Equal(t, ToTime(630770112000000000), ToTime(630770112000000009))
	assert.Equal(t, 1000, ToTime(630770112000000010).Nanosecond())
}

func TestRoundTrip_WholeSeconds(t *testing.T) {
	instants := []time.Time{
		Epoch,
		time.Date(1, time.January, 1, 0, 0, 1, 0, time.UTC),
		time.Date(1900, time.February, 28, 23, 59, 59, 0, time.UTC),
		time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1999, time.November, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, time.February, 29, 12, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 2, 13, 45, 7, 0, time.UTC),
		time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, in := range instants {
		out := ToTime(FromTime(in))
		assert.True(t, in.Equal(out), "round trip %v -> %v", in, out)
	}
}

func TestRoundTrip_Microseconds(t *testing.T) {
	in := time.Date(2024, time.March, 3, 3, 3, 3, 123456000, time.UTC)
	assert.True(t, in.Equal(ToTime(FromTime(in))))
}

func TestNegativeTicks(t *testing.T) {
	before := Epoch.Add(-time.Second)
	n := FromTime(before)
	assert.Equal(t, int64(-PerSecond), n)
	assert.True(t, before.Equal(ToTime(n)))
}
