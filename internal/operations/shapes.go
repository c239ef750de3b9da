package operations

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is one decoded response.
type Page struct {
	Entries []json.RawMessage
	// Cursor is the continuation token; HasCursor tells whether the server sent one.
	Cursor    string
	HasCursor bool
	// More is the server's "more pages available" flag.
	More bool
}

// envelope is the windowed response body.
type envelope struct {
	ListeOperations   *[]json.RawMessage `json:"listeOperations"`
	NextSetStartIndex json.RawMessage    `json:"nextSetStartIndex"`
	HasNext           *bool              `json:"hasNext"`
}

// decodeEnveloped reads {"listeOperations": [...], "nextSetStartIndex": ..., "hasNext": ...}.
func decodeEnveloped(body []byte) (*Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrMalformedResponse, err)
	}
	if env.ListeOperations == nil {
		return nil, fmt.Errorf("%w: missing listeOperations", ErrMalformedResponse)
	}

	page := &Page{Entries: *env.ListeOperations}
	if env.HasNext != nil {
		page.More = *env.HasNext
	}
	cursor, ok, err := decodeCursor(env.NextSetStartIndex)
	if err != nil {
		return nil, err
	}
	page.Cursor, page.HasCursor = cursor, ok
	return page, nil
}

// decodeBare reads a plain JSON array of entries. Bare pages never continue.
func decodeBare(body []byte) (*Page, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode list: %v", ErrMalformedResponse, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: expected a list, got %s", ErrMalformedResponse, bytes.TrimSpace(body))
	}
	return &Page{Entries: entries}, nil
}

// decodeCursor accepts a string or numeric token; null or absent means none.
func decodeCursor(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, fmt.Errorf("%w: nextSetStartIndex: %v", ErrMalformedResponse, err)
		}
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false, fmt.Errorf("%w: nextSetStartIndex is %s", ErrMalformedResponse, raw)
	}
	return n.String(), true, nil
}

// decoderFor picks the response shape of a kind.
func decoderFor(kind Kind) func([]byte) (*Page, error) {
	if kind == KindCard {
		return decodeBare
	}
	return decodeEnveloped
}

// wrapEnvelope gives a stored windowed fixture (a bare list) the live envelope shape.
func wrapEnvelope(list []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"listeOperations":`)
	buf.Write(bytes.TrimSpace(list))
	buf.WriteString(`}`)
	return buf.Bytes()
}
