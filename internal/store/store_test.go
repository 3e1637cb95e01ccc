package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nicehist/internal/rpc"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchemaAndIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an already-migrated database must not fail.
	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()
}

func TestStoreCommand_RequiresCmd(t *testing.T) {
	s := newTestStore(t)
	_, err := s.StoreCommand(context.Background(), rpc.StoreParams{Cwd: "/tmp"})
	require.Error(t, err)
}

func TestStoreCommand_InsertsHistoryRow(t *testing.T) {
	s := newTestStore(t)
	id, err := s.StoreCommand(context.Background(), rpc.StoreParams{
		Cmd: "git status",
		Cwd: "/home/user/project",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
}

func TestStoreCommand_SameCommandIsIdempotentOnCommandRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "ls -la", Cwd: "/tmp"})
	require.NoError(t, err)
	id2, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "ls -la", Cwd: "/tmp"})
	require.NoError(t, err)

	// Two distinct history rows, sharing one commands row, so frequency
	// accumulates rather than creating duplicate command entries.
	assert.NotEqual(t, id1, id2)
}

func TestPredict_RanksByFrequency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "git status", Cwd: "/repo"})
		require.NoError(t, err)
	}
	_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "git stash", Cwd: "/repo"})
	require.NoError(t, err)

	result, err := s.Predict(ctx, rpc.PredictParams{Prefix: "git st", Cwd: "/repo"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "git status", result.Suggestions[0].Cmd)
}

func TestPredict_EmptyWhenNoHistory(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Predict(context.Background(), rpc.PredictParams{Prefix: "anything", Cwd: "/tmp"})
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
}

func TestPredict_RespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cmds := []string{"echo a", "echo b", "echo c"}
	for _, c := range cmds {
		_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: c, Cwd: "/tmp"})
		require.NoError(t, err)
	}

	result, err := s.Predict(ctx, rpc.PredictParams{Prefix: "echo", Cwd: "/tmp", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Suggestions, 2)
}

func TestSearch_FiltersByPattern(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "git status", Cwd: "/repo"})
	require.NoError(t, err)
	_, err = s.StoreCommand(ctx, rpc.StoreParams{Cmd: "ls -la", Cwd: "/repo"})
	require.NoError(t, err)

	result, err := s.Search(ctx, rpc.SearchParams{Pattern: "git"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "git status", result.Results[0].Cmd)
}

func TestSearch_FiltersByDir(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "make build", Cwd: "/a"})
	require.NoError(t, err)
	_, err = s.StoreCommand(ctx, rpc.StoreParams{Cmd: "make build", Cwd: "/b"})
	require.NoError(t, err)

	result, err := s.Search(ctx, rpc.SearchParams{Dir: "/a"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "/a", result.Results[0].Cwd)
}

func TestDeleteCommand_RemovesCommandAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "rm -rf /tmp/leftover", Cwd: "/tmp"})
	require.NoError(t, err)

	res, err := s.DeleteCommand(ctx, rpc.DeleteParams{Cmd: "rm -rf /tmp/leftover"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	search, err := s.Search(ctx, rpc.SearchParams{Pattern: "leftover"})
	require.NoError(t, err)
	assert.Empty(t, search.Results)
}

func TestDeleteCommand_NonexistentReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	res, err := s.DeleteCommand(context.Background(), rpc.DeleteParams{Cmd: "never stored"})
	require.NoError(t, err)
	assert.False(t, res.Deleted)
}

func TestDeleteCommand_RequiresCmd(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DeleteCommand(context.Background(), rpc.DeleteParams{})
	require.Error(t, err)
}

func TestFrecentAdd_AndQuery_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/home/user/project"}))
	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/home/user/project"}))

	result, err := s.FrecentQuery(ctx, rpc.FrecentQueryParams{})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "/home/user/project", result.Results[0].Path)
	require.NotNil(t, result.Results[0].Rank)
	assert.Equal(t, 2.0, *result.Results[0].Rank)
}

func TestFrecentAdd_RequiresPath(t *testing.T) {
	s := newTestStore(t)
	err := s.FrecentAdd(context.Background(), rpc.FrecentAddParams{})
	require.Error(t, err)
}

func TestFrecentQuery_MatchesFragment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/home/user/nicehist"}))
	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/home/user/other"}))

	result, err := s.FrecentQuery(ctx, rpc.FrecentQueryParams{Terms: []string{"nicehist"}})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "/home/user/nicehist", result.Results[0].Path)
}

func TestFrecentQuery_NoTermsReturnsAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/a"}))
	require.NoError(t, s.FrecentAdd(ctx, rpc.FrecentAddParams{Path: "/b"}))

	result, err := s.FrecentQuery(ctx, rpc.FrecentQueryParams{})
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
}

func TestStoreCommand_CdBumpsTargetDirectoryFrecency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StoreCommand(ctx, rpc.StoreParams{Cmd: "cd subdir", Cwd: "/home/user"})
	require.NoError(t, err)

	result, err := s.FrecentQuery(ctx, rpc.FrecentQueryParams{Raw: true})
	require.NoError(t, err)

	var sawTarget bool
	for _, r := range result.Results {
		if r.Path == "/home/user/subdir" {
			sawTarget = true
		}
	}
	assert.True(t, sawTarget, "cd target directory should be bumped in frecent_paths")
}

func TestContext_BypassesDatabase(t *testing.T) {
	s := newTestStore(t)
	info := s.Context("/nonexistent/path/for/context/test")
	assert.Equal(t, "", info.VCS)
}
