package raster

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image/color"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxUseDepth bounds chains of <use> elements that reference each other.
const maxUseDepth = 16

var errNotSVG = errors.New("document has no <svg> root element")

// node is one parsed SVG element.
type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	text     string
}

func (n *node) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// content returns the character data of n and its descendants with
// whitespace collapsed.
func (n *node) content() string {
	var sb strings.Builder
	var collect func(*node)
	collect = func(e *node) {
		sb.WriteString(e.text)
		sb.WriteByte(' ')
		for _, c := range e.children {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// textRun is a <text> element positioned in viewBox units.
type textRun struct {
	x, y   float64
	size   float64
	bold   bool
	anchor string
	fill   color.Gray
	text   string
}

// flatten rewrites an SVG document into the subset oksvg draws. Each <use>
// is replaced by the content it references, <symbol> viewBoxes become
// transforms, and <text> elements are returned as runs for the text pass.
func flatten(r io.Reader) ([]byte, []textRun, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, nil, err
	}

	f := &flattener{ids: make(map[string]*node), rules: make(styleRules)}
	f.index(root)

	f.buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg"`)
	f.writeAttrs(root.attrs, nil)
	f.buf.WriteByte('>')
	for _, c := range root.children {
		f.write(c, 0)
	}
	f.buf.WriteString("</svg>")

	return f.buf.Bytes(), f.texts, nil
}

// parseTree reads the element tree. The decoder is lenient so that forecast
// text with a bare ampersand does not reject the whole display.
func parseTree(r io.Reader) (*node, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	var root *node
	var stack []*node
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil || root.name != "svg" {
		return nil, errNotSVG
	}
	return root, nil
}

type flattener struct {
	ids   map[string]*node
	rules styleRules
	buf   bytes.Buffer
	texts []textRun
}

func (f *flattener) index(n *node) {
	if id := n.attr("id"); id != "" {
		if _, ok := f.ids[id]; !ok {
			f.ids[id] = n
		}
	}
	if n.name == "style" {
		f.rules.parse(n.text)
	}
	for _, c := range n.children {
		f.index(c)
	}
}

func (f *flattener) write(n *node, depth int) {
	switch n.name {
	case "symbol", "style", "title", "desc", "metadata":
		return
	case "defs":
		f.writeDefs(n)
		return
	case "text":
		f.addText(n)
		return
	case "use":
		f.writeUse(n, depth)
		return
	}

	f.buf.WriteByte('<')
	f.buf.WriteString(n.name)
	f.writeAttrs(n.attrs, nil)
	if len(n.children) == 0 {
		f.buf.WriteString("/>")
		return
	}
	f.buf.WriteByte('>')
	for _, c := range n.children {
		f.write(c, depth)
	}
	f.buf.WriteString("</")
	f.buf.WriteString(n.name)
	f.buf.WriteByte('>')
}

// writeDefs keeps the gradients of a <defs> block. Everything else in it is
// only drawn through <use>.
func (f *flattener) writeDefs(n *node) {
	f.buf.WriteString("<defs>")
	for _, c := range n.children {
		if c.name == "linearGradient" || c.name == "radialGradient" {
			f.write(c, 0)
		}
	}
	f.buf.WriteString("</defs>")
}

var (
	useOwnAttrs    = map[string]bool{"id": true, "href": true, "x": true, "y": true, "width": true, "height": true}
	symbolOwnAttrs = map[string]bool{"id": true, "viewBox": true, "x": true, "y": true, "width": true, "height": true, "preserveAspectRatio": true}
)

// writeUse emits the element a <use> references inside groups that place it.
// A referenced symbol is scaled into the use width and height, keeping its
// aspect ratio and centering it.
func (f *flattener) writeUse(n *node, depth int) {
	if depth >= maxUseDepth {
		return
	}
	target := f.ids[strings.TrimPrefix(n.attr("href"), "#")]
	if target == nil || target == n {
		return
	}

	f.buf.WriteString("<g")
	f.writeAttrs(n.attrs, useOwnAttrs)
	f.buf.WriteByte('>')
	f.openTransform("translate", number(n.attr("x")), number(n.attr("y")))

	if target.name != "symbol" {
		f.write(target, depth+1)
		f.buf.WriteString("</g></g>")
		return
	}

	groups := 0
	if vb, ok := parseViewBox(target.attr("viewBox")); ok {
		width, height := vb[2], vb[3]
		if w := number(n.attr("width")); w > 0 {
			width = w
		}
		if h := number(n.attr("height")); h > 0 {
			height = h
		}
		scale := math.Min(width/vb[2], height/vb[3])
		f.openTransform("translate", (width-vb[2]*scale)/2, (height-vb[3]*scale)/2)
		f.openTransform("scale", scale, scale)
		f.openTransform("translate", -vb[0], -vb[1])
		groups = 3
	}

	f.buf.WriteString("<g")
	f.writeAttrs(target.attrs, symbolOwnAttrs)
	f.buf.WriteByte('>')
	for _, c := range target.children {
		f.write(c, depth+1)
	}
	f.buf.WriteString("</g>")

	f.buf.WriteString(strings.Repeat("</g>", groups))
	f.buf.WriteString("</g></g>")
}

func (f *flattener) openTransform(name string, a, b float64) {
	f.buf.WriteString(`<g transform="`)
	f.buf.WriteString(name)
	f.buf.WriteByte('(')
	f.buf.WriteString(formatNumber(a))
	f.buf.WriteByte(',')
	f.buf.WriteString(formatNumber(b))
	f.buf.WriteString(`)">`)
}

func (f *flattener) writeAttrs(attrs []xml.Attr, skip map[string]bool) {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" || skip[a.Name.Local] {
			continue
		}
		f.buf.WriteByte(' ')
		f.buf.WriteString(a.Name.Local)
		f.buf.WriteString(`="`)
		xml.EscapeText(&f.buf, []byte(a.Value))
		f.buf.WriteByte('"')
	}
}

func (f *flattener) addText(n *node) {
	text := n.content()
	style := f.rules.resolve(n)
	if text == "" || style["fill"] == "none" || style["display"] == "none" {
		return
	}

	run := textRun{
		x:      number(n.attr("x")),
		y:      number(n.attr("y")),
		size:   16,
		bold:   isBold(style["font-weight"]),
		anchor: style["text-anchor"],
		fill:   parseGray(style["fill"]),
		text:   text,
	}
	if size := number(style["font-size"]); size > 0 {
		run.size = size
	}
	f.texts = append(f.texts, run)
}

// styleRules maps a selector (an element name or ".class") to its
// declarations.
type styleRules map[string]map[string]string

var (
	cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssRule    = regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`)
)

func (s styleRules) parse(css string) {
	css = cssComment.ReplaceAllString(css, "")
	for _, m := range cssRule.FindAllStringSubmatch(css, -1) {
		decls := parseDeclarations(m[2])
		for _, selector := range strings.Split(m[1], ",") {
			selector = strings.TrimSpace(selector)
			if selector == "" {
				continue
			}
			if s[selector] == nil {
				s[selector] = make(map[string]string)
			}
			for k, v := range decls {
				s[selector][k] = v
			}
		}
	}
}

// resolve merges the element rule, class rules, presentation attributes
// and the inline style, later ones winning.
func (s styleRules) resolve(n *node) map[string]string {
	style := make(map[string]string)
	merge := func(decls map[string]string) {
		for k, v := range decls {
			style[k] = v
		}
	}

	merge(s[n.name])
	for _, class := range strings.Fields(n.attr("class")) {
		merge(s["."+class])
	}
	for _, a := range n.attrs {
		switch a.Name.Local {
		case "fill", "font-size", "font-weight", "text-anchor", "display":
			style[a.Name.Local] = strings.TrimSpace(a.Value)
		}
	}
	merge(parseDeclarations(n.attr("style")))
	return style
}

func parseDeclarations(body string) map[string]string {
	decls := make(map[string]string)
	for _, decl := range strings.Split(body, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		decls[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return decls
}

func isBold(weight string) bool {
	switch weight = strings.ToLower(weight); weight {
	case "bold", "bolder":
		return true
	}
	w, err := strconv.Atoi(weight)
	return err == nil && w >= 600
}

// parseGray reads a color keyword or hex color. Anything else is black.
func parseGray(v string) color.Gray {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "white":
		return color.Gray{Y: 255}
	case "gray", "grey":
		return color.Gray{Y: 128}
	}

	hex, ok := strings.CutPrefix(v, "#")
	if !ok {
		return color.Gray{}
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if len(hex) != 6 || err != nil {
		return color.Gray{}
	}
	c := color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 255}
	return color.GrayModel.Convert(c).(color.Gray)
}

// number reads the first number of an attribute such as "12", "12px" or
// "12 30". Missing or malformed values read as 0.
func number(v string) float64 {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "px"), 64)
	if err != nil {
		return 0
	}
	return n
}

func parseViewBox(v string) ([4]float64, bool) {
	var vb [4]float64
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 4 {
		return vb, false
	}
	for i, field := range fields {
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return vb, false
		}
		vb[i] = n
	}
	return vb, vb[2] > 0 && vb[3] > 0
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
