package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseXML reads an XML document and returns its root element.
func ParseXML(r io.Reader) (Node, error) {
	decoder := xml.NewDecoder(r)

	var (
		stack []*element
		texts []*strings.Builder
		root  *element
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
			texts = append(texts, &strings.Builder{})
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("error parsing XML: unexpected end element %s", t.Name.Local)
			}
			el := stack[len(stack)-1]
			el.text = strings.TrimSpace(texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		}
	}

	if root == nil {
		return nil, errors.New("error parsing XML: document has no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("error parsing XML: element %s is not closed", stack[len(stack)-1].name)
	}
	return root, nil
}
