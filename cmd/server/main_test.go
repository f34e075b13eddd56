package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{"normal short name", "Alice", "Alice"},
		{"exactly 16 chars", "1234567890123456", "1234567890123456"},
		{"long name truncated", "ThisIsAVeryLongUsername", "ThisIsAVeryLongU"},
		{"control chars stripped", "he\x00ll\x1bo", "hello"},
		{"ansi escape partial", "he\x1b[31mllo", "he[31mllo"},
		{"empty input", "", ""},
		{"pure control chars", "\x00\x01\x02\x1b", ""},
		{"multi-byte runes truncated by byte limit", "日本語のテスト名前", "日本語のテ"},
		{"tabs stripped", "hello\tworld", "helloworld"},
		{"newlines stripped", "hello\nworld", "helloworld"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, sanitizeName(tc.input))
		})
	}
}

func TestHostKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")

	first, err := loadOrCreateHostKey(path, zap.NewNop())
	require.NoError(t, err)
	assert.FileExists(t, path)

	second, err := loadOrCreateHostKey(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey().Marshal(), second.PublicKey().Marshal())
}

func TestHostKeyReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	signer, err := loadOrCreateHostKey(path, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, signer)
}

func TestHandlerDrainRefusesNewSessions(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	require.True(t, h.begin())

	drained := make(chan struct{})
	go func() {
		h.drain()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("drain returned while a session was running")
	case <-time.After(50 * time.Millisecond):
	}
	h.wg.Done()

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return after the session ended")
	}
	assert.False(t, h.begin(), "no sessions start after drain")
}
