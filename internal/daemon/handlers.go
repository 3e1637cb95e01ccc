package daemon

import (
	"context"
	"encoding/json"

	"github.com/runger/nicehist/internal/rpc"
)

// dispatch decodes req.Params into the method's parameter type, invokes
// the matching store operation, and wraps the result (or error) into a
// Response. Unknown methods produce CodeMethodNotFound; parameter decode
// failures produce CodeInvalidParams.
func (s *Server) dispatch(ctx context.Context, req rpc.Request) *rpc.Response {
	switch req.Method {
	case "ping":
		return rpc.Success(req.ID, rpc.PingResult{Pong: true})

	case "store":
		var p rpc.StoreParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		id, err := s.st.StoreCommand(ctx, p)
		if err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, rpc.StoreResult{ID: id})

	case "predict":
		var p rpc.PredictParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		result, err := s.st.Predict(ctx, p)
		if err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, result)

	case "search":
		var p rpc.SearchParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		result, err := s.st.Search(ctx, p)
		if err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, result)

	case "delete":
		var p rpc.DeleteParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		result, err := s.st.DeleteCommand(ctx, p)
		if err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, result)

	case "context":
		var p rpc.ContextParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		return rpc.Success(req.ID, s.st.Context(p.Cwd))

	case "frecent_add":
		var p rpc.FrecentAddParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		if err := s.st.FrecentAdd(ctx, p); err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, struct{}{})

	case "frecent_query":
		var p rpc.FrecentQueryParams
		if err := decodeParams(req.Params, &p); err != nil {
			return rpc.Failure(req.ID, err)
		}
		result, err := s.st.FrecentQuery(ctx, p)
		if err != nil {
			return rpc.Failure(req.ID, toRPCError(err))
		}
		return rpc.Success(req.ID, result)

	default:
		return rpc.Failure(req.ID, rpc.NewError(rpc.CodeMethodNotFound, "unknown method: "+req.Method))
	}
}

func decodeParams(raw json.RawMessage, v any) *rpc.RPCError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return rpc.NewError(rpc.CodeInvalidParams, err.Error())
	}
	return nil
}

// toRPCError passes through an already-typed *rpc.RPCError (raised
// deliberately by a store method for a client-caused condition) or wraps
// any other error as an internal error.
func toRPCError(err error) *rpc.RPCError {
	if rpcErr, ok := err.(*rpc.RPCError); ok {
		return rpcErr
	}
	return rpc.NewError(rpc.CodeInternalError, err.Error())
}
