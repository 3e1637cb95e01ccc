package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

// fetchTimeout bounds a single round trip to the daemon so a stalled or
// missing socket never leaves the TUI hanging on a keystroke.
const fetchTimeout = 300 * time.Millisecond

// PredictProvider fetches items via the daemon's "predict" method, ranking
// candidates in the current working directory's context.
type PredictProvider struct {
	client *rpcclient.Client
	cwd    string
}

var _ Provider = (*PredictProvider)(nil)

// NewPredictProvider creates a provider bound to cwd for the "predict" method.
func NewPredictProvider(socketPath, cwd string) *PredictProvider {
	return &PredictProvider{client: rpcclient.New(socketPath), cwd: cwd}
}

// Fetch implements Provider.
func (p *PredictProvider) Fetch(ctx context.Context, query string, limit int) ([]Item, error) {
	done := make(chan struct{})
	var result rpc.PredictResult
	var err error

	go func() {
		err = p.client.Call("predict", rpc.PredictParams{
			Prefix: query,
			Cwd:    p.cwd,
			Limit:  limit,
		}, &result)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(fetchTimeout):
		return nil, fmt.Errorf("predict: daemon did not respond within %s", fetchTimeout)
	}
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(result.Suggestions))
	for i, s := range result.Suggestions {
		items[i] = Item{Value: s.Cmd, Detail: fmt.Sprintf("%.2f", s.Score)}
	}
	return items, nil
}

// FrecentProvider fetches items via the daemon's "frecent_query" method.
type FrecentProvider struct {
	client   *rpcclient.Client
	pathType string
}

var _ Provider = (*FrecentProvider)(nil)

// NewFrecentProvider creates a provider for frecency-ranked paths of the
// given type ("d" for directories, "f" for files).
func NewFrecentProvider(socketPath, pathType string) *FrecentProvider {
	return &FrecentProvider{client: rpcclient.New(socketPath), pathType: pathType}
}

// Fetch implements Provider.
func (p *FrecentProvider) Fetch(ctx context.Context, query string, limit int) ([]Item, error) {
	done := make(chan struct{})
	var result rpc.FrecencyResultList
	var err error

	go func() {
		err = p.client.Call("frecent_query", rpc.FrecentQueryParams{
			Terms:    splitTerms(query),
			PathType: p.pathType,
			Limit:    limit,
		}, &result)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(fetchTimeout):
		return nil, fmt.Errorf("frecent_query: daemon did not respond within %s", fetchTimeout)
	}
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(result.Results))
	for i, r := range result.Results {
		items[i] = Item{Value: r.Path, Detail: fmt.Sprintf("%.2f", r.Score)}
	}
	return items, nil
}

func splitTerms(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
