package uiauto

import (
	"testing"

	"droid-agent/internal/domain/entity"
)

const sampleDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" bounds="[0,0][1080,2400]">
    <node index="0" text="Obsidian" resource-id="md.obsidian:id/title" class="android.widget.TextView" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" bounds="[40,120][400,200]"/>
    <node index="1" text="Create a vault" resource-id="md.obsidian:id/create" class="android.widget.Button" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="false" bounds="[100,1000][980,1100]"/>
    <node index="2" text="" resource-id="md.obsidian:id/settings" class="android.widget.ImageButton" package="md.obsidian" content-desc="Settings" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="false" bounds="[940,120][1040,220]"/>
    <node index="3" text="" resource-id="md.obsidian:id/vault_name" class="android.widget.EditText" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="true" bounds="[100,600][980,700]"/>
    <node index="4" text="Dark mode" resource-id="" class="android.widget.TextView" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" bounds="[100,1400][500,1480]"/>
    <node index="5" text="" resource-id="md.obsidian:id/dark_toggle" class="android.widget.Switch" package="md.obsidian" content-desc="" checkable="true" checked="false" clickable="true" enabled="true" focusable="true" focused="false" bounds="[900,1400][1040,1480]"/>
    <node index="6" text="" resource-id="" class="android.view.View" package="md.obsidian" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" bounds="[0,0][0,0]"/>
  </node>
</hierarchy>`

func TestParse_SampleDump(t *testing.T) {
	elements, err := Parse(sampleDump)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// 8 nodes, one with degenerate bounds that must be dropped.
	if len(elements) != 7 {
		t.Fatalf("expected 7 elements, got %d", len(elements))
	}

	button := elements[2]
	if button.Text != "Create a vault" || !button.Clickable {
		t.Errorf("unexpected element: %+v", button)
	}
	want := entity.Rect{X1: 100, Y1: 1000, X2: 980, Y2: 1100}
	if button.Bounds != want {
		t.Errorf("bounds = %+v, want %+v", button.Bounds, want)
	}
	cx, cy := button.Bounds.Center()
	if cx != 540 || cy != 1050 {
		t.Errorf("center = (%d,%d), want (540,1050)", cx, cy)
	}
}

func TestParse_StableIDs(t *testing.T) {
	a, err := Parse(sampleDump)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(sampleDump)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("ids differ between identical dumps: %s vs %s", a[i].ID, b[i].ID)
		}
	}
	if a[0].ID != "ui-0001" {
		t.Errorf("first id = %s", a[0].ID)
	}
}

func TestParse_BadXML(t *testing.T) {
	if _, err := Parse("<hierarchy><node"); err == nil {
		t.Fatal("expected error for truncated xml")
	}
}

func mustParse(t *testing.T) []entity.UIElement {
	t.Helper()
	elements, err := Parse(sampleDump)
	if err != nil {
		t.Fatal(err)
	}
	return elements
}

func TestFindByText(t *testing.T) {
	elements := mustParse(t)

	el, ok := FindByText(elements, "create a vault")
	if !ok || el.ResourceID != "md.obsidian:id/create" {
		t.Errorf("exact match failed: %+v ok=%v", el, ok)
	}

	el, ok = FindByText(elements, "vault")
	if !ok || el.ResourceID != "md.obsidian:id/create" {
		t.Errorf("substring match failed: %+v ok=%v", el, ok)
	}

	el, ok = FindByText(elements, "settings")
	if !ok || el.ResourceID != "md.obsidian:id/settings" {
		t.Errorf("content-desc match failed: %+v ok=%v", el, ok)
	}

	if _, ok := FindByText(elements, "nonexistent"); ok {
		t.Error("matched an element that is not there")
	}
	if _, ok := FindByText(elements, "  "); ok {
		t.Error("blank query must not match")
	}
}

func TestFindButton_SkipsNonClickable(t *testing.T) {
	elements := mustParse(t)

	// "Obsidian" exists only as a non-clickable title.
	if _, ok := FindButton(elements, "obsidian"); ok {
		t.Error("non-clickable element returned as button")
	}
	el, ok := FindButton(elements, "create a vault")
	if !ok || !el.Clickable {
		t.Errorf("clickable button not found: %+v ok=%v", el, ok)
	}
}

func TestFirstEditText_PrefersFocused(t *testing.T) {
	elements := mustParse(t)
	el, ok := FirstEditText(elements)
	if !ok || el.ResourceID != "md.obsidian:id/vault_name" || !el.Focused {
		t.Errorf("unexpected edit text: %+v ok=%v", el, ok)
	}

	if _, ok := FirstEditText(nil); ok {
		t.Error("found an edit text in an empty hierarchy")
	}
}

func TestFindToggle_NearLabel(t *testing.T) {
	elements := mustParse(t)
	el, ok := FindToggle(elements, "Dark mode")
	if !ok || el.ResourceID != "md.obsidian:id/dark_toggle" {
		t.Errorf("toggle not resolved from label: %+v ok=%v", el, ok)
	}

	if _, ok := FindToggle(elements, "Airplane mode"); ok {
		t.Error("toggle found for an absent label")
	}
}
