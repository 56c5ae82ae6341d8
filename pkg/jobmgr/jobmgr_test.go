package jobmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAsyncAndStop(t *testing.T) {
	m := NewManager()

	started := make(chan struct{})
	done := make(chan struct{})
	m.StartAsync("test", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(done)
		return nil
	})

	<-started
	assert.True(t, m.Running("test"))

	require.NoError(t, m.Stop("test"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
	assert.False(t, m.Running("test"))
}

func TestStopUnknownJob(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.Stop("nope"))
}

func TestStartAsyncReplacesSameName(t *testing.T) {
	m := NewManager()

	firstCancelled := make(chan struct{})
	m.StartAsync("dup", func(ctx context.Context) error {
		<-ctx.Done()
		close(firstCancelled)
		return nil
	})

	m.StartAsync("dup", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("first job was not replaced")
	}

	m.StopAll()
	assert.Eventually(t, func() bool { return !m.Running("dup") }, time.Second, 10*time.Millisecond)
}

func TestJobRemovedOnCompletion(t *testing.T) {
	m := NewManager()

	m.StartAsync("short", func(ctx context.Context) error { return nil })

	assert.Eventually(t, func() bool { return !m.Running("short") }, time.Second, 10*time.Millisecond)
}
