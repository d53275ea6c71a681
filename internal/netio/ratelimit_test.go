package netio

import (
	"testing"
	"time"
)

func TestTokenBucketAllowsUpToBurstThenBlocks(t *testing.T) {
	fakeNow := time.Unix(0, 0)
	restore := timeNow
	timeNow = func() time.Time { return fakeNow }
	defer func() { timeNow = restore }()

	b := NewTokenBucket(5)

	for i := 0; i < 5; i++ {
		if !b.Allow() {
			t.Fatalf("expected token %d to be allowed within burst capacity", i)
		}
	}
	if b.Allow() {
		t.Fatalf("expected bucket to be exhausted after consuming full burst")
	}
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	fakeNow := time.Unix(0, 0)
	restore := timeNow
	timeNow = func() time.Time { return fakeNow }
	defer func() { timeNow = restore }()

	b := NewTokenBucket(2)
	b.Allow()
	b.Allow()
	if b.Allow() {
		t.Fatalf("expected bucket exhausted")
	}

	fakeNow = fakeNow.Add(time.Second)
	if !b.Allow() {
		t.Fatalf("expected refill after one second at rate 2/s")
	}
}
