// Package rpc defines the newline-delimited JSON-RPC wire protocol nicehist
// speaks over its Unix socket: one request object per connection, one
// response object in reply, then the connection closes.
package rpc

import "encoding/json"

// JSON-RPC error codes (external interfaces, error handling design).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeApplicationErr = -32000
)

// Request is a single JSON-RPC request.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     any             `json:"id,omitempty"`
}

// Response is a single JSON-RPC response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface so an *RPCError can be returned
// directly from a handler.
func (e *RPCError) Error() string {
	return e.Message
}

// NewError constructs an *RPCError.
func NewError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// Success builds a successful Response for the given request id.
func Success(id any, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// Failure builds an error Response for the given request id.
func Failure(id any, err *RPCError) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: err}
}

// StoreParams are the parameters of the "store" method (ingestion
// pipeline, component C).
type StoreParams struct {
	Cmd        string `json:"cmd"`
	Cwd        string `json:"cwd"`
	ExitStatus *int   `json:"exit_status,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
	StartTime  *int64 `json:"start_time,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	PrevCmd    string `json:"prev_cmd,omitempty"`
	Prev2Cmd   string `json:"prev2_cmd,omitempty"`
}

// StoreResult is the result of the "store" method.
type StoreResult struct {
	ID int64 `json:"id"`
}

// RankingWeights are the six-signal composite weights consulted by the
// prediction ranker (component D). The zero value is never used directly;
// DefaultRankingWeights supplies the spec defaults.
type RankingWeights struct {
	Frequency       float64 `json:"frequency"`
	Recency         float64 `json:"recency"`
	DirExact        float64 `json:"dir_exact"`
	DirHierarchy    float64 `json:"dir_hierarchy"`
	FailurePenalty  float64 `json:"failure_penalty"`
	FrecentBoostMax float64 `json:"frecent_boost_max"`
	Ngram           float64 `json:"ngram"`
}

// DefaultRankingWeights returns the weight defaults named in the
// component design.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Frequency:       0.35,
		Recency:         0.30,
		DirExact:        0.35,
		DirHierarchy:    0.15,
		FailurePenalty:  0.50,
		FrecentBoostMax: 0.10,
		Ngram:           0.40,
	}
}

// PredictParams are the parameters of the "predict" method.
type PredictParams struct {
	Prefix       string          `json:"prefix"`
	Cwd          string          `json:"cwd"`
	LastCmds     []string        `json:"last_cmds,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	FrecentBoost *bool           `json:"frecent_boost,omitempty"`
	Weights      *RankingWeights `json:"weights,omitempty"`
}

// Suggestion is a single predict() result.
type Suggestion struct {
	Cmd   string  `json:"cmd"`
	Score float64 `json:"score"`
}

// PredictResult is the result of the "predict" method.
type PredictResult struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// ContextParams are the parameters of the "context" method.
type ContextParams struct {
	Cwd string `json:"cwd"`
}

// ContextInfo is the result of the "context" method.
type ContextInfo struct {
	VCS     string `json:"vcs,omitempty"`
	Branch  string `json:"branch,omitempty"`
	VCSRoot string `json:"vcs_root,omitempty"`
	Project string `json:"project,omitempty"`
}

// DeleteParams are the parameters of the "delete" method.
type DeleteParams struct {
	Cmd string `json:"cmd"`
}

// DeleteResult is the result of the "delete" method.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// SearchParams are the parameters of the "search" method. LastCmds, Cwd,
// and NgramBoost are accepted and round-tripped but not consulted by the
// query (spec Open Question (a)): reserved for future use.
type SearchParams struct {
	Pattern    string   `json:"pattern"`
	Limit      int      `json:"limit,omitempty"`
	Dir        string   `json:"dir,omitempty"`
	ExitStatus *int     `json:"exit_status,omitempty"`
	LastCmds   []string `json:"last_cmds,omitempty"`
	Cwd        string   `json:"cwd,omitempty"`
	NgramBoost bool     `json:"ngram_boost,omitempty"`
}

// SearchResult is a single search() result.
type SearchResult struct {
	Cmd        string   `json:"cmd"`
	Cwd        string   `json:"cwd"`
	Timestamp  int64    `json:"timestamp"`
	ExitStatus *int     `json:"exit_status,omitempty"`
	DurationMs *int64   `json:"duration_ms,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// SearchResultList is the result of the "search" method.
type SearchResultList struct {
	Results []SearchResult `json:"results"`
}

// FrecentAddParams are the parameters of the "frecent_add" method.
type FrecentAddParams struct {
	Path      string   `json:"path"`
	PathType  string   `json:"path_type,omitempty"`
	Rank      *float64 `json:"rank,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

// FrecentQueryParams are the parameters of the "frecent_query" method.
type FrecentQueryParams struct {
	Terms    []string `json:"terms,omitempty"`
	PathType string   `json:"path_type,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Raw      bool     `json:"raw,omitempty"`
}

// FrecencyResult is a single frecent_query() result.
type FrecencyResult struct {
	Path       string   `json:"path"`
	PathType   string   `json:"path_type"`
	Score      float64  `json:"score"`
	Rank       *float64 `json:"rank,omitempty"`
	LastAccess *int64   `json:"last_access,omitempty"`
}

// FrecencyResultList is the result of the "frecent_query" method.
type FrecencyResultList struct {
	Results []FrecencyResult `json:"results"`
}

// PingResult is the result of the "ping" method.
type PingResult struct {
	Pong bool `json:"pong"`
}
