package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apu-code-collab/apcc-api/internal/service"
)

type fakeStore struct {
	url      string
	migrated bool
	seeded   []string
	closed   bool
	err      error
}

func (f *fakeStore) Migrate(context.Context) error {
	f.migrated = true
	return f.err
}

func (f *fakeStore) Seed(_ context.Context, target string) ([]service.SeedResult, error) {
	f.seeded = append(f.seeded, target)
	if f.err != nil {
		return nil, f.err
	}
	return []service.SeedResult{{Target: target, Added: 3, Skipped: 9}}, nil
}

func (f *fakeStore) Close() { f.closed = true }

func execute(t *testing.T, fake *fakeStore, args ...string) (string, error) {
	t.Helper()

	original := openStore
	openStore = func(_ context.Context, url string) (store, error) {
		fake.url = url
		return fake, nil
	}
	t.Cleanup(func() {
		openStore = original
		databaseURL = ""
		rootCmd.SetArgs(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--database-url", "postgres://test"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestMigrateCmd(t *testing.T) {
	fake := &fakeStore{}
	out, err := execute(t, fake, "migrate")

	require.NoError(t, err)
	assert.True(t, fake.migrated)
	assert.True(t, fake.closed)
	assert.Equal(t, "postgres://test", fake.url)
	assert.Contains(t, out, "up to date")
}

func TestSeedCmd(t *testing.T) {
	fake := &fakeStore{}
	out, err := execute(t, fake, "seed", "frameworks")

	require.NoError(t, err)
	assert.Equal(t, []string{"frameworks"}, fake.seeded)
	assert.Contains(t, out, "added 3, skipped 9")
}

func TestSeedCmdRejectsUnknownTarget(t *testing.T) {
	fake := &fakeStore{}
	_, err := execute(t, fake, "seed", "users")

	assert.Error(t, err)
	assert.Empty(t, fake.seeded)
}

func TestSeedCmdReportsFailure(t *testing.T) {
	fake := &fakeStore{err: errors.New("relation does not exist")}
	_, err := execute(t, fake, "seed", "all")

	assert.ErrorContains(t, err, "relation does not exist")
	assert.True(t, fake.closed)
}
