package storagefs_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/mem"
)

func newThrottled(t *testing.T, readBps, writeBps float64, opts ...storagefs.ThrottleOption) *storagefs.ThrottledStorage {
	t.Helper()

	ts := storagefs.NewThrottledStorage(mem.New(), readBps, writeBps, opts...)
	require.NoError(t, ts.Mount())
	t.Cleanup(func() { _ = ts.Unmount() })

	return ts
}

func TestThrottleUnlimitedDelegates(t *testing.T) {
	ts := newThrottled(t, 0, 0)

	root, err := ts.Root()
	require.NoError(t, err)

	f, err := root.CreateFile("plain.txt", storagefs.ModeWrite)
	require.NoError(t, err)

	n, err := f.WriteString("unthrottled")
	require.NoError(t, err)
	assert.Equal(t, len("unthrottled"), n)
	require.NoError(t, f.Close())

	require.NoError(t, f.Open(storagefs.ModeRead))
	data, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "unthrottled", string(data))
	require.NoError(t, f.Close())
}

func TestThrottleWritePacing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive test in short mode")
	}

	// 4 KiB/s with a 4 KiB burst: the first 4 KiB is free, the second
	// costs roughly a second of waiting.
	ts := newThrottled(t, 0, 4096)

	root, err := ts.Root()
	require.NoError(t, err)

	f, err := root.CreateFile("bulk.bin", storagefs.ModeWrite)
	require.NoError(t, err)
	defer f.Close()

	payload := bytes.Repeat([]byte{0xAB}, 8192)

	start := time.Now()
	n, err := f.Write(payload)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.GreaterOrEqual(t, elapsed, 700*time.Millisecond)
}

func TestThrottleReadAllChargesFileSize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive test in short mode")
	}

	ts := newThrottled(t, 4096, 0)

	root, err := ts.Root()
	require.NoError(t, err)

	f, err := root.CreateFile("bulk.bin", storagefs.ModeWrite)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xCD}, 8192)
	_, err = f.Write(payload)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, f.Open(storagefs.ModeRead))
	defer f.Close()

	start := time.Now()
	data, err := f.ReadAll()
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.GreaterOrEqual(t, elapsed, 700*time.Millisecond)
}

func TestThrottleCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := newThrottled(t, 1, 1, storagefs.WithThrottleContext(ctx))

	root, err := ts.Root()
	require.NoError(t, err)

	f, err := root.CreateFile("stuck.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("never lands"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storagefs.ErrTimeout)
}

func TestThrottleWrapsChildren(t *testing.T) {
	ts := newThrottled(t, 0, 0)

	root, err := ts.Root()
	require.NoError(t, err)

	sub, err := root.CreateFolder("nested", false)
	require.NoError(t, err)

	f, err := sub.CreateFile("leaf.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("leaf")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	files, err := sub.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, files[0].Open(storagefs.ModeRead))
	got, err := files[0].ReadString()
	require.NoError(t, err)
	assert.Equal(t, "leaf", got)
	require.NoError(t, files[0].Close())

	assert.Equal(t, "/nested", files[0].Parent().Path())
}
