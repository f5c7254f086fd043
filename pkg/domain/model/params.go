package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Params is a free-form structured mapping of tool parameters
type Params map[string]any

// Clone returns a deep copy of p by round-tripping through JSON. nil stays nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		cloned := make(Params, len(p))
		for k, v := range p {
			cloned[k] = v
		}
		return cloned
	}
	var cloned Params
	if err := json.Unmarshal(raw, &cloned); err != nil {
		return p
	}
	return cloned
}

// EncodeParams serializes p for storage. nil encodes to an empty string so that the column stays unset.
func EncodeParams(p Params) (string, error) {
	if p == nil {
		return "", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode params")
	}
	return string(raw), nil
}

// DecodeParams parses stored params. An empty or "null" value decodes to nil.
func DecodeParams(s string) (Params, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var p Params
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode params", goerr.V("value", s))
	}
	return p, nil
}

// EncodeResult serializes an opaque execution result for storage
func EncodeResult(r json.RawMessage) string {
	if len(r) == 0 {
		return ""
	}
	return string(r)
}

// DecodeResult returns the stored execution result, or nil if unset
func DecodeResult(s string) json.RawMessage {
	if s == "" || s == "null" {
		return nil
	}
	return json.RawMessage(s)
}
