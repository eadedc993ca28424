package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgq/internal/config"
)

func testConfig(t *testing.T) *config.ServiceConfig {
	t.Helper()
	t.Setenv("WORKER_RECEIVE_TIMEOUT", "100ms")
	cfg, err := config.Init()
	require.NoError(t, err)
	return cfg
}

func TestParseFlags(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want flags
	}{
		{"defaults", nil, flags{message: defaultMessage}},
		{"in and out", []string{"-in", "a.txt", "-out", "b.txt"}, flags{inPath: "a.txt", outPath: "b.txt", message: defaultMessage}},
		{"message", []string{"-message", "hi"}, flags{message: "hi"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, parseFlags(c.args))
		})
	}
}

func TestRun(t *testing.T) {
	cases := []struct {
		name  string
		input string
		fl    func(in, out string) flags
		want  string
	}{
		{
			name:  "file input copied line by line",
			input: "line1\nline2\nlast-no-nl",
			fl:    func(in, out string) flags { return flags{inPath: in, outPath: out} },
			want:  "line1\nline2\nlast-no-nl",
		},
		{
			name: "single message",
			fl:   func(_, out string) flags { return flags{outPath: out, message: "hello\n"} },
			want: "hello\n",
		},
		{
			name:  "empty input ends without waiting forever",
			input: "",
			fl:    func(in, out string) flags { return flags{inPath: in, outPath: out} },
			want:  "",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testConfig(t)
			dir := t.TempDir()
			in := filepath.Join(dir, "input.txt")
			out := filepath.Join(dir, "nested", "output.txt")
			require.NoError(t, os.WriteFile(in, []byte(c.input), 0o644))

			done := make(chan error, 1)
			go func() { done <- run(context.Background(), cfg, c.fl(in, out), zerolog.Nop()) }()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not finish")
			}
			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, c.want, string(got))
		})
	}
}

func TestRun_MissingInputFile(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	err := run(context.Background(), cfg, flags{
		inPath:  filepath.Join(dir, "missing.txt"),
		outPath: filepath.Join(dir, "out.txt"),
	}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRun_CanceledContextReleasesConsumer(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, flags{message: "x\n", outPath: filepath.Join(dir, "out.txt")}, zerolog.Nop())
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after cancel")
	}
}
