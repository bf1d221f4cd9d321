package match

import (
	"bytes"
	"context"
	"encoding/json"
)

// request is the loosely typed form accepted by MatchRequest. Fields stay
// raw so wrong JSON types can be told apart from decoding errors.
type request struct {
	Primary   json.RawMessage `json:"primary"`
	Secondary json.RawMessage `json:"secondary"`
	Key       json.RawMessage `json:"key"`
}

var jsonNull = []byte("null")

// MatchRequest decodes a JSON document of the form
//
//	{"primary": ["/a/1.jpg"], "secondary": ["/b/1.jpg"], "key": "contentHash"}
//
// and runs Match on it. Lists that are not arrays of strings, or a key
// that is present but not a recognized name, yield InvalidInput. An absent
// or null key means ContentHash.
func MatchRequest(ctx context.Context, raw []byte, store Lookuper, opts ...Option) Result {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return invalid("malformed request: %v", err)
	}

	primary, ok := decodeList(req.Primary)
	if !ok {
		return invalid("primary is not a list of paths")
	}
	secondary, ok := decodeList(req.Secondary)
	if !ok {
		return invalid("secondary is not a list of paths")
	}

	key := ContentHash
	if len(req.Key) > 0 && !bytes.Equal(bytes.TrimSpace(req.Key), jsonNull) {
		var name string
		if err := json.Unmarshal(req.Key, &name); err != nil {
			return invalid("key is not a string: %s", req.Key)
		}
		if key, ok = ParseKey(name); !ok {
			return invalid("unrecognized key %q", name)
		}
	}

	return Match(ctx, primary, secondary, store, key, opts...)
}

func decodeList(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}
