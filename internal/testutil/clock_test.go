package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSteppingClock(t *testing.T) {
	epoch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(epoch, time.Second)

	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())

	clock.Reset()
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
}

func TestSteppingClockZeroStep(t *testing.T) {
	epoch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(epoch, 0)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch, clock.Now())
}

func TestRunIDs(t *testing.T) {
	var gen RunIDs

	assert.Equal(t, "R0000001", gen.Next())
	assert.Equal(t, "R0000002", gen.Next())

	gen.Reset()
	assert.Equal(t, "R0000001", gen.Next())
}

func TestSteppingClockConcurrent(t *testing.T) {
	clock := NewSteppingClock(time.Unix(0, 0).UTC(), time.Millisecond)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				clock.Now()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, time.Unix(0, 0).UTC().Add(801*time.Millisecond), clock.Now())
}
