package daemon

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &Server{st: st}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDispatch_Ping(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{Method: "ping", ID: 1})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(rpc.PingResult)
	require.True(t, ok)
	assert.True(t, result.Pong)
}

func TestDispatch_UnknownMethod(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{Method: "bogus", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
}

func TestDispatch_MalformedParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{
		Method: "store",
		Params: json.RawMessage(`{not json`),
		ID:     1,
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestDispatch_StoreThenPredict(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	storeResp := s.dispatch(ctx, rpc.Request{
		Method: "store",
		Params: mustMarshal(t, rpc.StoreParams{Cmd: "git status", Cwd: "/repo"}),
		ID:     1,
	})
	require.Nil(t, storeResp.Error)

	predictResp := s.dispatch(ctx, rpc.Request{
		Method: "predict",
		Params: mustMarshal(t, rpc.PredictParams{Prefix: "git", Cwd: "/repo"}),
		ID:     2,
	})
	require.Nil(t, predictResp.Error)
	result, ok := predictResp.Result.(rpc.PredictResult)
	require.True(t, ok)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "git status", result.Suggestions[0].Cmd)
}

func TestDispatch_StoreRequiresCmd(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{
		Method: "store",
		Params: mustMarshal(t, rpc.StoreParams{Cwd: "/repo"}),
		ID:     1,
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestDispatch_DeleteUnknownCommand(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{
		Method: "delete",
		Params: mustMarshal(t, rpc.DeleteParams{Cmd: "never stored"}),
		ID:     1,
	})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(rpc.DeleteResult)
	require.True(t, ok)
	assert.False(t, result.Deleted)
}

func TestDispatch_Context(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(context.Background(), rpc.Request{
		Method: "context",
		Params: mustMarshal(t, rpc.ContextParams{Cwd: "/does/not/exist"}),
		ID:     1,
	})
	require.Nil(t, resp.Error)
	_, ok := resp.Result.(rpc.ContextInfo)
	assert.True(t, ok)
}

func TestDispatch_FrecentAddAndQuery(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	addResp := s.dispatch(ctx, rpc.Request{
		Method: "frecent_add",
		Params: mustMarshal(t, rpc.FrecentAddParams{Path: "/home/user/project"}),
		ID:     1,
	})
	require.Nil(t, addResp.Error)

	queryResp := s.dispatch(ctx, rpc.Request{
		Method: "frecent_query",
		Params: mustMarshal(t, rpc.FrecentQueryParams{}),
		ID:     2,
	})
	require.Nil(t, queryResp.Error)
	result, ok := queryResp.Result.(rpc.FrecencyResultList)
	require.True(t, ok)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "/home/user/project", result.Results[0].Path)
}

func TestDecodeParams_EmptyRawIsNoOp(t *testing.T) {
	var p rpc.StoreParams
	err := decodeParams(nil, &p)
	assert.Nil(t, err)
}

func TestToRPCError_PassesThroughRPCError(t *testing.T) {
	original := rpc.NewError(rpc.CodeInvalidParams, "bad")
	got := toRPCError(original)
	assert.Same(t, original, got)
}

func TestToRPCError_WrapsGenericError(t *testing.T) {
	got := toRPCError(assertErr{"boom"})
	assert.Equal(t, rpc.CodeInternalError, got.Code)
	assert.Equal(t, "boom", got.Message)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
