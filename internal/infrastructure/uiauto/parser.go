// Package uiauto parses uiautomator hierarchy dumps into UI elements and
// finds elements by text, role or proximity.
package uiauto

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"

	"droid-agent/internal/domain/entity"
)

var boundsRe = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

// Parse walks a window_dump.xml document and returns its nodes in document
// order. Nodes without parseable bounds are skipped; an element id encodes
// the node's position so two dumps of the same screen produce the same ids.
func Parse(xml string) ([]entity.UIElement, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil, fmt.Errorf("parse hierarchy dump: %w", err)
	}

	var elements []entity.UIElement
	seq := 0
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "node" {
			seq++
			if parsed, ok := nodeToElement(el, seq); ok {
				elements = append(elements, parsed)
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}
	return elements, nil
}

func nodeToElement(el *etree.Element, seq int) (entity.UIElement, bool) {
	bounds, ok := parseBounds(el.SelectAttrValue("bounds", ""))
	if !ok {
		return entity.UIElement{}, false
	}
	return entity.UIElement{
		ID:          fmt.Sprintf("ui-%04d", seq),
		Class:       el.SelectAttrValue("class", ""),
		Text:        el.SelectAttrValue("text", ""),
		ContentDesc: el.SelectAttrValue("content-desc", ""),
		ResourceID:  el.SelectAttrValue("resource-id", ""),
		Bounds:      bounds,
		Clickable:   boolAttr(el, "clickable"),
		Focusable:   boolAttr(el, "focusable"),
		Focused:     boolAttr(el, "focused"),
		Checkable:   boolAttr(el, "checkable"),
		Checked:     boolAttr(el, "checked"),
	}, true
}

func parseBounds(raw string) (entity.Rect, bool) {
	m := boundsRe.FindStringSubmatch(raw)
	if m == nil {
		return entity.Rect{}, false
	}
	x1, _ := strconv.Atoi(m[1])
	y1, _ := strconv.Atoi(m[2])
	x2, _ := strconv.Atoi(m[3])
	y2, _ := strconv.Atoi(m[4])
	if x2 <= x1 || y2 <= y1 {
		return entity.Rect{}, false
	}
	return entity.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}, true
}

func boolAttr(el *etree.Element, name string) bool {
	return el.SelectAttrValue(name, "false") == "true"
}
