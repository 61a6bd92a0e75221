package formatter

import (
	"strings"
	"testing"
)

func TestNewPresets_Builtins(t *testing.T) {
	presets := NewPresets().List()

	expectedNames := []string{"compact", "detailed", "json", "count-only"}
	if len(presets) != len(expectedNames) {
		t.Fatalf("Expected %d built-in presets, got %d", len(expectedNames), len(presets))
	}
	for i, expected := range expectedNames {
		if presets[i].Name != expected {
			t.Errorf("Expected preset name %q at index %d, got %q", expected, i, presets[i].Name)
		}
		if len(presets[i].Template.Variables()) == 0 {
			t.Errorf("%s: template has no variables", presets[i].Name)
		}
	}
}

func TestPresets_GetAndRegister(t *testing.T) {
	presets := NewPresets()

	if _, ok := presets.Get("missing"); ok {
		t.Error("Expected unknown preset to be missing")
	}
	if err := presets.Register("", "x", ""); err == nil {
		t.Error("Expected error for empty name")
	}
	if err := presets.Register("x", "", ""); err == nil {
		t.Error("Expected error for empty template")
	}
	if err := presets.Register("mine", "{{unread-count}}!", "mine"); err != nil {
		t.Fatalf("Register returned %v", err)
	}
	if err := presets.Register("mine", "{{unread-count}}?", "mine"); err != nil {
		t.Fatalf("Register returned %v", err)
	}
	preset, ok := presets.Get("mine")
	if !ok {
		t.Fatal("Expected registered preset")
	}
	if preset.Template.String() != "{{unread-count}}?" {
		t.Errorf("Expected overwritten template, got %q", preset.Template.String())
	}
	if n := len(presets.List()); n != 5 {
		t.Errorf("Expected 5 presets after overwrite, got %d", n)
	}
}

func TestRegisterRejectsInvalidTemplate(t *testing.T) {
	presets := NewPresets()
	if err := presets.Register("broken", "{{unread-count", ""); err == nil {
		t.Error("Expected error for unclosed placeholder")
	}
	if err := presets.Register("typo", "{{unread}}", ""); err == nil {
		t.Error("Expected error for unknown variable")
	}
	if _, ok := presets.Get("typo"); ok {
		t.Error("Rejected preset should not be registered")
	}
}

func TestResolve(t *testing.T) {
	presets := NewPresets()
	ctx := VariableContext{UnreadCount: 4}

	tmpl, err := presets.Resolve("count-only")
	if err != nil {
		t.Fatalf("Resolve(preset) returned %v", err)
	}
	if got := tmpl.Execute(ctx); got != "4" {
		t.Errorf("count-only = %q", got)
	}
	tmpl, err = presets.Resolve("{{unread-count}} unread")
	if err != nil {
		t.Fatalf("Resolve(template) returned %v", err)
	}
	if got := tmpl.Execute(ctx); got != "4 unread" {
		t.Errorf("custom template = %q", got)
	}
	if _, err := presets.Resolve("{{bogus}}"); err == nil {
		t.Error("Expected error for unknown variable")
	}
}

func TestRender(t *testing.T) {
	ctx := VariableContext{
		UnreadCount:   3,
		ChannelCount:  2,
		DirectCount:   1,
		ManualCount:   1,
		LatestSender:  "Alice",
		LatestChannel: "general",
		LatestPreview: "hello",
		HasUnread:     true,
		ChannelList:   "general:2,design:1",
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{name: "empty", template: "", want: ""},
		{name: "no variables", template: "plain", want: "plain"},
		{name: "compact", template: "[{{unread-count}}] {{channel-list}}", want: "[3] general:2,design:1"},
		{name: "alias", template: "{{total-count}}", want: "3"},
		{name: "repeated", template: "{{unread-count}}/{{unread-count}}", want: "3/3"},
		{name: "strings", template: "{{latest-sender}} #{{latest-channel}}: {{latest-message}}", want: "Alice #general: hello"},
		{name: "bool", template: "{{has-unread}}", want: "true"},
		{name: "fallback unused", template: "{{latest-sender|nobody}}", want: "Alice"},
		{name: "spaces around name", template: "{{ unread-count }}", want: "3"},
		{name: "json", template: `{"unread":{{unread-count}},"channels":{{channel-count}},"direct":{{direct-count}},"manual":{{manual-count}}}`, want: `{"unread":3,"channels":2,"direct":1,"manual":1}`},
		{name: "unknown", template: "{{nope}}", wantErr: true},
		{name: "unclosed", template: "{{unread-count", wantErr: true},
		{name: "stray close", template: "count}}", wantErr: true},
		{name: "nested", template: "{{ {{unread-count}}", wantErr: true},
		{name: "empty name", template: "{{|x}}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackForEmptyValues(t *testing.T) {
	got, err := Render("{{latest-sender|nobody}} in #{{latest-channel|-}}: {{latest-message|}}", VariableContext{})
	if err != nil {
		t.Fatalf("Render returned %v", err)
	}
	if got != "nobody in #-: " {
		t.Errorf("Render() = %q", got)
	}
}

func TestTemplateVariables(t *testing.T) {
	tmpl, err := Parse("{{unread-count}} {{channel-list|none}} {{unread-count}}")
	if err != nil {
		t.Fatalf("Parse returned %v", err)
	}
	if strings.Join(tmpl.Variables(), ",") != "unread-count,channel-list" {
		t.Errorf("Variables() = %v", tmpl.Variables())
	}
	if tmpl.String() != "{{unread-count}} {{channel-list|none}} {{unread-count}}" {
		t.Errorf("String() = %q", tmpl.String())
	}
}

func TestEveryListedVariableParses(t *testing.T) {
	for _, name := range Variables {
		if !IsVariable(name) {
			t.Errorf("IsVariable(%q) = false", name)
		}
		if _, err := Parse("{{" + name + "}}"); err != nil {
			t.Errorf("Parse(%q) returned %v", name, err)
		}
	}
	if IsVariable("session-count") {
		t.Error("IsVariable should reject names outside the list")
	}
}
