package uiauto

import (
	"strings"

	"droid-agent/internal/domain/entity"
)

// FindByText returns the first element whose text or content description
// matches the query, preferring exact matches over substring matches.
// Matching is case-insensitive.
func FindByText(elements []entity.UIElement, query string) (entity.UIElement, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entity.UIElement{}, false
	}

	for _, el := range elements {
		if strings.ToLower(el.Text) == q || strings.ToLower(el.ContentDesc) == q {
			return el, true
		}
	}
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Text), q) ||
			strings.Contains(strings.ToLower(el.ContentDesc), q) {
			return el, true
		}
	}
	return entity.UIElement{}, false
}

// FindButton is FindByText restricted to clickable elements, so labels
// sitting next to the real button do not win.
func FindButton(elements []entity.UIElement, query string) (entity.UIElement, bool) {
	var clickable []entity.UIElement
	for _, el := range elements {
		if el.Clickable {
			clickable = append(clickable, el)
		}
	}
	return FindByText(clickable, query)
}

// FirstEditText returns the first focused text input, or the first text
// input at all when none is focused.
func FirstEditText(elements []entity.UIElement) (entity.UIElement, bool) {
	var first entity.UIElement
	found := false
	for _, el := range elements {
		if !strings.HasSuffix(el.Class, "EditText") {
			continue
		}
		if el.Focused {
			return el, true
		}
		if !found {
			first = el
			found = true
		}
	}
	return first, found
}

// FindToggle locates the checkable control belonging to a labelled row. The
// toggle rarely carries the label itself, so the nearest checkable element
// on roughly the same horizontal band as the label wins.
func FindToggle(elements []entity.UIElement, label string) (entity.UIElement, bool) {
	anchor, ok := FindByText(elements, label)
	if !ok {
		return entity.UIElement{}, false
	}
	if anchor.Checkable {
		return anchor, true
	}

	_, anchorY := anchor.Bounds.Center()
	best := entity.UIElement{}
	bestDist := -1
	for _, el := range elements {
		if !el.Checkable {
			continue
		}
		_, y := el.Bounds.Center()
		dist := y - anchorY
		if dist < 0 {
			dist = -dist
		}
		if dist > anchor.Bounds.Height() {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best = el
			bestDist = dist
		}
	}
	return best, bestDist >= 0
}
