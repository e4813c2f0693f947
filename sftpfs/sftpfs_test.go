package sftpfs

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/storagetest"
)

// TestSFTP_Integration requires a reachable SFTP server, configured via
// SFTP_TEST_ADDR, SFTP_TEST_USER, SFTP_TEST_PASS and SFTP_TEST_DIR.
// Skip if not available.
func TestSFTP_Integration(t *testing.T) {
	addr := os.Getenv("SFTP_TEST_ADDR")
	if addr == "" {
		t.Skip("SFTP_TEST_ADDR not set")
	}

	config := &ssh.ClientConfig{
		User:            os.Getenv("SFTP_TEST_USER"),
		Auth:            []ssh.AuthMethod{ssh.Password(os.Getenv("SFTP_TEST_PASS"))},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	baseDir := os.Getenv("SFTP_TEST_DIR")
	if baseDir == "" {
		baseDir = "/tmp"
	}

	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		t.Skipf("SFTP server not available: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	client, err := sftp.NewClient(conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	storagetest.Run(t, func(t *testing.T) storagefs.Storage {
		dir := fmt.Sprintf("%s/storagefs-test-%d", baseDir, time.Now().UnixNano())
		require.NoError(t, client.Mkdir(dir))
		t.Cleanup(func() { _ = client.RemoveAll(dir) })

		return New(client, dir)
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		dir  bool
		want storagefs.Code
	}{
		{name: "nil", err: nil, want: storagefs.CodeNone},
		{name: "not found file", err: os.ErrNotExist, want: storagefs.CodeFileNotFound},
		{name: "not found dir", err: os.ErrNotExist, dir: true, want: storagefs.CodeFolderNotFound},
		{name: "exists", err: os.ErrExist, want: storagefs.CodeAlreadyExists},
		{name: "permission", err: os.ErrPermission, want: storagefs.CodePermissionDenied},
		{name: "unknown", err: fmt.Errorf("weird"), want: storagefs.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, tt.dir, "op failed")
			assert.Equal(t, tt.want, storagefs.CodeOf(got))
		})
	}
}

func TestNewAppliesOptions(t *testing.T) {
	metrics := &storagefs.BasicMetricsCollector{}
	st := New(nil, "/srv/data//", WithMetrics(metrics), WithLogger(storagefs.NoopLogger()))

	assert.Equal(t, "/srv/data", st.MountPoint())
	assert.False(t, st.IsMounted())
	assert.Same(t, metrics, st.metrics)
}

func TestFormatUnsupported(t *testing.T) {
	st := New(nil, "/srv/data")
	err := st.Format()
	require.ErrorIs(t, err, storagefs.ErrInvalidOperation)
}
