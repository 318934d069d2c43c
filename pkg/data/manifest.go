package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ManifestNode is one node of a project listing: either a Branch (a
// directory-like mapping) or a Leaf (a terminal value).
type ManifestNode interface {
	isManifestNode()
}

// Entry is a single key of a Branch.
type Entry struct {
	Key  string
	Node ManifestNode
}

// Branch keeps the keys in the order the listing document declared them.
type Branch []Entry

// Leaf holds a terminal value. Strings are stored unquoted; any other JSON
// value (number, bool, null, array) is stored as its raw JSON text.
type Leaf string

func (Branch) isManifestNode() {}
func (Leaf) isManifestNode()   {}

// Get returns the node stored under key, if any.
func (b Branch) Get(key string) (ManifestNode, bool) {
	for _, e := range b {
		if e.Key == key {
			return e.Node, true
		}
	}
	return nil, false
}

var errEmptyManifest = errors.New("empty manifest document")

// ParseManifest decodes a listing document into a ManifestNode, preserving
// the key order of every object. The document is read in a single pass, so
// cost is linear in its size whatever the nesting depth.
func ParseManifest(doc []byte) (ManifestNode, error) {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return nil, errEmptyManifest
	}
	if !json.Valid(doc) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	return decodeValue(dec, doc)
}

// decodeValue reads the next value from dec. doc is the buffer dec reads
// from; arrays are returned as their raw text sliced out of it.
func decodeValue(dec *json.Decoder, doc []byte) (ManifestNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeBranch(dec, doc)
		case '[':
			return decodeArray(dec, doc)
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return Leaf(v), nil
	case json.Number:
		return Leaf(v.String()), nil
	case bool:
		return Leaf(strconv.FormatBool(v)), nil
	case nil:
		return Leaf("null"), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// decodeBranch reads object members after the opening brace has been
// consumed, up to and including the closing brace.
func decodeBranch(dec *json.Decoder, doc []byte) (ManifestNode, error) {
	branch := Branch{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		node, err := decodeValue(dec, doc)
		if err != nil {
			return nil, err
		}
		branch = append(branch, Entry{Key: key, Node: node})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return branch, nil
}

// decodeArray skips to the matching closing bracket and returns the array's
// text as it appears in doc.
func decodeArray(dec *json.Decoder, doc []byte) (ManifestNode, error) {
	// The opening bracket is the single byte just before the offset.
	start := dec.InputOffset() - 1
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return Leaf(string(doc[start:dec.InputOffset()])), nil
}
