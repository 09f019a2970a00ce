package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_Advance(t *testing.T) {
	c := NewFakeClock(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), c.Now())
}

func TestFakeClock_AfterFuncFiresWhenDue(t *testing.T) {
	c := NewFakeClock(epoch)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "late") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "early") })

	c.Advance(999 * time.Millisecond)
	assert.Empty(t, fired)
	assert.Equal(t, 2, c.Timers())

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Zero(t, c.Timers())
}

func TestFakeClock_StopPreventsFiring(t *testing.T) {
	c := NewFakeClock(epoch)

	var fired bool
	stop := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, stop())
	assert.False(t, stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeClock_TimerScheduledInsideCallback(t *testing.T) {
	c := NewFakeClock(epoch)

	var count int
	var schedule func()
	schedule = func() {
		count++
		c.AfterFunc(time.Second, schedule)
	}
	c.AfterFunc(time.Second, schedule)

	c.Advance(time.Second)
	c.Advance(time.Second)
	assert.Equal(t, 2, count)
}
