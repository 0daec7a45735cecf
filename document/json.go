package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// RootName is the name given to the top-level JSON object.
const RootName = "response"

// ParseJSON reads a JSON document and returns it as a node tree.
//
// Each object key becomes a child named by the key. An array under key k
// becomes one child named k per element, so {"forecastday": [a, b]} reads the
// same as two <forecastday> XML elements. Scalars become text and null
// becomes empty text.
func ParseJSON(r io.Reader) (Node, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("error parsing JSON: document root must be an object")
	}

	root := &element{name: RootName}
	if err := decodeObject(decoder, root); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return root, nil
}

// decodeObject reads key/value pairs until the closing brace.
func decodeObject(decoder *json.Decoder, parent *element) error {
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", token)
		}

		children, err := decodeValue(decoder, key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		parent.children = append(parent.children, children...)
	}

	// closing '}'
	_, err := decoder.Token()
	return err
}

// decodeValue reads the next value and returns the nodes it produces under name.
func decodeValue(decoder *json.Decoder, name string) ([]Node, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	switch v := token.(type) {
	case json.Delim:
		switch v {
		case '{':
			el := &element{name: name}
			if err := decodeObject(decoder, el); err != nil {
				return nil, err
			}
			return []Node{el}, nil
		case '[':
			var items []Node
			for decoder.More() {
				item, err := decodeValue(decoder, name)
				if err != nil {
					return nil, err
				}
				items = append(items, item...)
			}
			// closing ']'
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return items, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", v)
		}
	case nil:
		return []Node{NewElement(name, "")}, nil
	case json.Number:
		return []Node{NewElement(name, v.String())}, nil
	case string:
		return []Node{NewElement(name, v)}, nil
	case bool:
		if v {
			return []Node{NewElement(name, "true")}, nil
		}
		return []Node{NewElement(name, "false")}, nil
	default:
		return nil, fmt.Errorf("unsupported token %T", token)
	}
}
