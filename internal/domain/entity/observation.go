package entity

import (
	"fmt"
	"strings"
	"time"
)

// Rect is an element bounding box in screen pixels, as reported by the
// uiautomator dump ("[x1,y1][x2,y2]").
type Rect struct {
	X1, Y1, X2, Y2 int
}

func (r Rect) Center() (int, int) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.X1, r.Y1, r.X2, r.Y2)
}

type UIElement struct {
	ID          string
	Class       string
	Text        string
	ContentDesc string
	ResourceID  string
	Bounds      Rect
	Clickable   bool
	Focusable   bool
	Focused     bool
	Checkable   bool
	Checked     bool
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Observation is one frozen snapshot of device UI state. It is captured
// fresh at the start of every loop iteration and never mutated afterwards.
type Observation struct {
	Screenshot   *Screenshot
	Elements     []UIElement
	HierarchyXML string
	ScreenWidth  int
	ScreenHeight int
	CapturedAt   time.Time

	// Digest identifies the observed state for no-progress detection.
	// Two observations with equal digests are considered the same screen.
	Digest uint64
}

// VisibleText joins the first max non-empty element texts, the way the
// planner sees them.
func (o *Observation) VisibleText(max int) string {
	texts := make([]string, 0, max)
	for _, el := range o.Elements {
		t := strings.TrimSpace(el.Text)
		if t == "" {
			continue
		}
		texts = append(texts, t)
		if len(texts) >= max {
			break
		}
	}
	return strings.Join(texts, "; ")
}

// Summary is the compact form of an observation that survives in run
// history after the screenshot is gone.
func (o *Observation) Summary() string {
	text := o.VisibleText(20)
	if text == "" {
		text = "(no visible text)"
	}
	return fmt.Sprintf("%dx%d, %d elements: %s", o.ScreenWidth, o.ScreenHeight, len(o.Elements), text)
}
