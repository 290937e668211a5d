package service

import (
	"fmt"
	"time"

	"droid-agent/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionSpec describes one action the agent may take: its tool definition
// offered to the planner's model, and the decoder that turns the model's
// arguments back into an entity.Action.
type ActionSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Decode      func(arguments string) (entity.Action, error)
}

// Catalog is the registry of supported actions. Registration order is kept
// so tool definitions are stable across runs.
type Catalog struct {
	specs map[string]ActionSpec
	order []string
}

func NewCatalog() *Catalog {
	return &Catalog{specs: make(map[string]ActionSpec)}
}

func (c *Catalog) Register(spec ActionSpec) {
	if _, ok := c.specs[spec.Name]; !ok {
		c.order = append(c.order, spec.Name)
	}
	c.specs[spec.Name] = spec
}

func (c *Catalog) Get(name string) (ActionSpec, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

func (c *Catalog) Definitions() []entity.ToolDefinition {
	result := make([]entity.ToolDefinition, 0, len(c.order))
	for _, name := range c.order {
		spec := c.specs[name]
		result = append(result, entity.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		})
	}
	return result
}

// Decode turns one model tool call into a validated action.
func (c *Catalog) Decode(name, arguments string) (entity.Action, error) {
	spec, ok := c.specs[name]
	if !ok {
		return entity.Action{}, fmt.Errorf("unknown action %q", name)
	}
	action, err := spec.Decode(arguments)
	if err != nil {
		return entity.Action{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := action.Validate(); err != nil {
		return entity.Action{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return action, nil
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// DefaultCatalog registers the device action set: tap, swipe, type_text,
// key, wait, and the terminal finish action.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	c.Register(ActionSpec{
		Name:        "tap",
		Description: "Tap the screen at pixel coordinates. Prefer the center of a UI element's reported bounds.",
		Parameters: objectSchema(map[string]interface{}{
			"x":       map[string]interface{}{"type": "integer", "description": "X coordinate in pixels"},
			"y":       map[string]interface{}{"type": "integer", "description": "Y coordinate in pixels"},
			"element": map[string]interface{}{"type": "string", "description": "Label or id of the element being tapped, if known"},
		}, "x", "y"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				X       int    `json:"x"`
				Y       int    `json:"y"`
				Element string `json:"element"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			return entity.Action{Kind: entity.ActionTap, X: args.X, Y: args.Y, Target: args.Element}, nil
		},
	})

	c.Register(ActionSpec{
		Name:        "swipe",
		Description: "Swipe from a start point to an end point. Swipe up to scroll content down.",
		Parameters: objectSchema(map[string]interface{}{
			"start_x":     map[string]interface{}{"type": "integer"},
			"start_y":     map[string]interface{}{"type": "integer"},
			"end_x":       map[string]interface{}{"type": "integer"},
			"end_y":       map[string]interface{}{"type": "integer"},
			"duration_ms": map[string]interface{}{"type": "integer", "description": "Gesture duration in milliseconds, default 300"},
		}, "start_x", "start_y", "end_x", "end_y"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				StartX     int `json:"start_x"`
				StartY     int `json:"start_y"`
				EndX       int `json:"end_x"`
				EndY       int `json:"end_y"`
				DurationMS int `json:"duration_ms"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			if args.DurationMS == 0 {
				args.DurationMS = 300
			}
			return entity.Action{
				Kind: entity.ActionSwipe,
				X:    args.StartX, Y: args.StartY,
				X2: args.EndX, Y2: args.EndY,
				Duration: time.Duration(args.DurationMS) * time.Millisecond,
			}, nil
		},
	})

	c.Register(ActionSpec{
		Name:        "type_text",
		Description: "Type text into the currently focused input field. Tap the field first if it is not focused.",
		Parameters: objectSchema(map[string]interface{}{
			"text": map[string]interface{}{"type": "string", "description": "Text to type, verbatim"},
		}, "text"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				Text string `json:"text"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			return entity.Action{Kind: entity.ActionTypeText, Text: args.Text}, nil
		},
	})

	c.Register(ActionSpec{
		Name:        "key",
		Description: "Press an Android keycode: 4=back, 66=enter, 19/20/21/22=dpad up/down/left/right, 67=delete.",
		Parameters: objectSchema(map[string]interface{}{
			"keycode": map[string]interface{}{"type": "integer"},
		}, "keycode"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				Keycode int `json:"keycode"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			return entity.Action{Kind: entity.ActionKey, KeyCode: args.Keycode}, nil
		},
	})

	c.Register(ActionSpec{
		Name:        "wait",
		Description: "Wait for the UI to settle, e.g. while an app is loading.",
		Parameters: objectSchema(map[string]interface{}{
			"seconds": map[string]interface{}{"type": "number", "description": "Seconds to wait, 1-10"},
		}, "seconds"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				Seconds float64 `json:"seconds"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			return entity.Action{Kind: entity.ActionWait, Duration: time.Duration(args.Seconds * float64(time.Second))}, nil
		},
	})

	c.Register(ActionSpec{
		Name:        "finish",
		Description: "End the run. Call with outcome=success when the goal is fully achieved, outcome=failure when it is truly impossible.",
		Parameters: objectSchema(map[string]interface{}{
			"outcome": map[string]interface{}{"type": "string", "enum": []string{"success", "failure"}},
			"reason":  map[string]interface{}{"type": "string", "description": "Short explanation of the outcome"},
		}, "outcome"),
		Decode: func(arguments string) (entity.Action, error) {
			var args struct {
				Outcome string `json:"outcome"`
				Reason  string `json:"reason"`
			}
			if err := json.UnmarshalFromString(arguments, &args); err != nil {
				return entity.Action{}, err
			}
			return entity.Action{
				Kind:    entity.ActionTerminate,
				Outcome: entity.RunOutcome(args.Outcome),
				Reason:  args.Reason,
			}, nil
		},
	})

	return c
}
