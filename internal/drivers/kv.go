package drivers

import (
	"context"
	"errors"
	"fmt"

	"github.com/staltz/base/internal/cycle"
	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/stream"
	"github.com/staltz/base/internal/trace"
)

// KV operations.
const (
	OpSet    = "set"
	OpGet    = "get"
	OpDelete = "delete"
)

// ErrInvalidRequest is returned for sink values the kv driver cannot serve.
var ErrInvalidRequest = errors.New("invalid kv request")

// KVRequest is one kv sink value. Sinks may also carry a map with the keys
// "op", "key" and "value".
type KVRequest struct {
	Op    string
	Key   string
	Value any
}

// KV returns a driver backed by st. Every sink request produces one
// response on the source:
//
//	{"op": "set", "key": k, "value": v, "found": true, "version": n}
//
// A get of a missing key, or a delete of one, responds with found false.
// Values are stored as canonical JSON. A malformed request or a storage
// failure terminates the source with the error.
func KV(ctx context.Context, st *store.Store) cycle.Driver[*stream.Stream] {
	return func(sink *stream.Stream, _ cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
		if st == nil {
			return nil, fmt.Errorf("kv driver: nil store")
		}
		return sink.TryMap(func(v any) (any, error) {
			req, err := ParseKVRequest(v)
			if err != nil {
				return nil, err
			}
			return serveKV(ctx, st, req)
		}), nil
	}
}

// ParseKVRequest accepts a KVRequest, a *KVRequest or a map with "op",
// "key" and optional "value".
func ParseKVRequest(v any) (KVRequest, error) {
	var req KVRequest
	switch val := v.(type) {
	case KVRequest:
		req = val
	case *KVRequest:
		if val == nil {
			return KVRequest{}, fmt.Errorf("%w: nil request", ErrInvalidRequest)
		}
		req = *val
	case map[string]any:
		op, _ := val["op"].(string)
		key, _ := val["key"].(string)
		req = KVRequest{Op: op, Key: key, Value: val["value"]}
	default:
		return KVRequest{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidRequest, v)
	}

	if req.Key == "" {
		return KVRequest{}, fmt.Errorf("%w: missing key", ErrInvalidRequest)
	}
	switch req.Op {
	case OpSet, OpGet, OpDelete:
	default:
		return KVRequest{}, fmt.Errorf("%w: unknown op %q", ErrInvalidRequest, req.Op)
	}
	return req, nil
}

func serveKV(ctx context.Context, st *store.Store, req KVRequest) (any, error) {
	resp := map[string]any{"op": req.Op, "key": req.Key}

	switch req.Op {
	case OpSet:
		encoded, err := trace.MarshalCanonical(req.Value)
		if err != nil {
			return nil, fmt.Errorf("kv set %q: %w", req.Key, err)
		}
		entry, err := st.KVSet(ctx, req.Key, string(encoded))
		if err != nil {
			return nil, err
		}
		value, err := trace.Normalize(req.Value)
		if err != nil {
			return nil, err
		}
		resp["value"] = value
		resp["found"] = true
		resp["version"] = entry.Version

	case OpGet:
		entry, found, err := st.KVGet(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		resp["found"] = found
		if found {
			value, err := trace.DecodeValue([]byte(entry.Value))
			if err != nil {
				return nil, fmt.Errorf("kv get %q: %w", req.Key, err)
			}
			resp["value"] = value
			resp["version"] = entry.Version
		}

	case OpDelete:
		existed, err := st.KVDelete(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		resp["found"] = existed
	}

	return resp, nil
}
