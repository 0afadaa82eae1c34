package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", "N102", "Invalid port", CategoryConfig},
		{"tree error", "N202", "Duplicate node id", CategoryTree},
		{"session error", "N300", "Session not found", CategorySession},
		{"protocol error", "N302", "WebSocket upgrade failed", CategoryProtocol},
		{"cli error", "N400", "Missing argument", CategoryCLI},
		{"unknown error code", "N999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryTree, "node %q not found", "apple")
	if err.Message != `node "apple" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != `node "apple" not found` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNestedError_Error(t *testing.T) {
	err := New("N300")
	if got, want := err.Error(), "N300: Session not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("N200").Wrap(os.ErrNotExist)
	if got := wrapped.Error(); !strings.HasSuffix(got, os.ErrNotExist.Error()) {
		t.Errorf("Error() = %q, want cause suffix", got)
	}
}

func TestNestedError_Unwrap(t *testing.T) {
	err := fmt.Errorf("loading: %w", New("N200").Wrap(os.ErrNotExist))

	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("N200")) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New("N201")) {
		t.Error("errors.Is matched a different code")
	}
	if got := CodeOf(err); got != "N200" {
		t.Errorf("CodeOf() = %q, want N200", got)
	}
	if got := CodeOf(os.ErrClosed); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestNestedError_WithLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	content := "nodes:\n  - id: a\n  - id: b\n  - id: a\n  - id: c\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("N202").WithLocation(path, 4, 9)

	if err.Location.String() != path+":4:9" {
		t.Errorf("Location = %q", err.Location.String())
	}
	if len(err.Context) != 4 {
		t.Errorf("Context has %d lines, want 4", len(err.Context))
	}

	DisableColors()
	defer EnableColors()
	out := err.Format()
	if !strings.Contains(out, "→    4 │   - id: a") {
		t.Errorf("Format() does not mark line 4:\n%s", out)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("N203").WithDetailf("step 2 refers to %q", "ghost")
	err.Location = &Location{File: "menu.yaml", Line: 7}

	want := `menu.yaml:7: N203: Unknown node (step 2 refers to "ghost")`
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("N103").
		WithDetail(`unknown select strategy "clasic"`).
		WithSuggestion("Did you mean classic?").
		Wrap(stderrors.New("boom"))

	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("FormatJSON is not valid JSON: %v", e)
	}
	if got["code"] != "N103" {
		t.Errorf("code = %v", got["code"])
	}
	if got["category"] != "config" {
		t.Errorf("category = %v", got["category"])
	}
	if got["suggestion"] != "Did you mean classic?" {
		t.Errorf("suggestion = %v", got["suggestion"])
	}
	if got["cause"] != "boom" {
		t.Errorf("cause = %v", got["cause"])
	}
	if _, ok := got["location"]; ok {
		t.Error("location present without a Location")
	}
}

func TestFormatWithoutColors(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("N102").WithSuggestion("Use 7070").Format()
	if strings.Contains(out, "\033[") {
		t.Error("Format() emitted ANSI codes with colors disabled")
	}
	for _, want := range []string{"ERROR N102: Invalid port", "Hint: Use 7070", "Learn more:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, New("N400"))
	if !strings.Contains(buf.String(), "ERROR N400") {
		t.Errorf("coded error output = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("plain error output = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil error wrote %q", buf.String())
	}
}

func TestAllCodesHaveTemplates(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) != 14 {
		t.Errorf("len(GetAllCodes()) = %d, want 14", len(codes))
	}
	for _, code := range codes {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Errorf("GetTemplate(%q) missing", code)
			continue
		}
		if tmpl.Message == "" || tmpl.Category == "" || tmpl.DocURL == "" {
			t.Errorf("template %s is incomplete: %+v", code, tmpl)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("N999", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	defer delete(registry, "N999")

	if got := New("N999").Message; got != "Custom" {
		t.Errorf("Message = %q, want Custom", got)
	}
}

func TestSuggestName(t *testing.T) {
	names := []string{"classic", "independent", "leaf", "single-leaf"}

	tests := []struct {
		input string
		want  string
	}{
		{"clasic", "Did you mean classic?"},
		{"Leaf", "Did you mean leaf?"},
		{"singleleaf", "Did you mean single-leaf?"},
		{"zzzzzzzz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SuggestName(tt.input, names); got != tt.want {
			t.Errorf("SuggestName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := SuggestName("x", nil); got != "" {
		t.Errorf("SuggestName with no candidates = %q", got)
	}
}
