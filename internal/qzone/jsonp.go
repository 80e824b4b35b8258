package qzone

import (
	"bytes"
	"errors"
)

// unwrapJSONP strips a callback({...}) envelope, returning the inner JSON.
// Plain JSON passes through untouched.
func unwrapJSONP(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed, nil
	}
	open := bytes.IndexByte(trimmed, '(')
	close := bytes.LastIndexByte(trimmed, ')')
	if open < 0 || close < open {
		return nil, errors.New("malformed jsonp envelope")
	}
	inner := bytes.TrimSpace(trimmed[open+1 : close])
	if len(inner) == 0 {
		return nil, errors.New("empty jsonp payload")
	}
	return inner, nil
}
