package docs

import (
	"errors"
	"strings"
	"testing"

	"github.com/savente93/snakedown/internal/python"
)

func strPtr(s string) *string { return &s }

func TestExpandReplacesMarkersInPlace(t *testing.T) {
	t.Parallel()
	fn := NewFunction("f", strPtr("use [[a.b]] or [[c|see c]], again [[a.b]]"))

	var seen []string
	err := fn.Expand(func(ref Reference) (string, error) {
		seen = append(seen, ref.Target)
		return "<" + ref.Text() + ">", nil
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	got, _ := fn.Docstring()
	if want := "use <a.b> or <see c>, again <a.b>"; got != want {
		t.Errorf("docstring = %q, want %q", got, want)
	}
	if strings.Join(seen, ",") != "a.b,c,a.b" {
		t.Errorf("resolve order = %v", seen)
	}
	if !fn.Expanded() {
		t.Error("expected expanded state")
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	t.Parallel()
	fn := NewFunction("f", strPtr("[[x]]"))
	calls := 0
	resolve := func(ref Reference) (string, error) {
		calls++
		return "[[" + ref.Target + "]]-linked", nil
	}

	if err := fn.Expand(resolve); err != nil {
		t.Fatal(err)
	}
	first, _ := fn.Docstring()
	if err := fn.Expand(resolve); err != nil {
		t.Fatal(err)
	}
	second, _ := fn.Docstring()

	if first != second {
		t.Errorf("second expansion changed docstring: %q -> %q", first, second)
	}
	if calls != 1 {
		t.Errorf("resolve called %d times, want 1", calls)
	}
}

func TestExpandFailureLeavesObjectRaw(t *testing.T) {
	t.Parallel()
	fn := NewFunction("f", strPtr("[[ok]] [[bad]]"))
	boom := errors.New("boom")
	err := fn.Expand(func(ref Reference) (string, error) {
		if ref.Target == "bad" {
			return "", boom
		}
		return "ok", nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if fn.Expanded() {
		t.Error("object should stay raw after a failed expansion")
	}
	if doc, _ := fn.Docstring(); doc != "[[ok]] [[bad]]" {
		t.Errorf("docstring changed: %q", doc)
	}
}

func TestExpandWithoutDocstring(t *testing.T) {
	t.Parallel()
	cls := NewClass("C", nil)
	if err := cls.Expand(func(Reference) (string, error) { return "", errors.New("unused") }); err != nil {
		t.Fatal(err)
	}
	if _, ok := cls.Docstring(); ok {
		t.Error("expected no docstring")
	}
	if !cls.Expanded() {
		t.Error("expected expanded state")
	}
}

func TestNewModuleFilters(t *testing.T) {
	t.Parallel()
	decl := &python.Module{
		Docstring: strPtr("module docs"),
		Functions: []*python.Function{
			{Name: "public", Docstring: strPtr("documented")},
			{Name: "_private", Docstring: strPtr("documented")},
			{Name: "undocumented"},
		},
		Classes: []*python.Class{
			{
				Name:      "Widget",
				Docstring: strPtr("a widget"),
				Methods: []*python.Function{
					{Name: "__init__", Docstring: strPtr("ctor")},
					{Name: "draw", Docstring: strPtr("draws")},
					{Name: "resize"},
				},
			},
			{Name: "_Hidden", Docstring: strPtr("hidden")},
		},
	}

	tests := []struct {
		name      string
		filter    Filter
		functions []string
		classes   []string
		methods   []string
	}{
		{"none", Filter{}, []string{"public", "_private", "undocumented"}, []string{"Widget", "_Hidden"}, []string{"__init__", "draw", "resize"}},
		{"private", Filter{SkipPrivate: true}, []string{"public", "undocumented"}, []string{"Widget"}, []string{"draw", "resize"}},
		{"undoc", Filter{SkipUndoc: true}, []string{"public", "_private"}, []string{"Widget", "_Hidden"}, []string{"__init__", "draw"}},
		{"both", Filter{SkipPrivate: true, SkipUndoc: true}, []string{"public"}, []string{"Widget"}, []string{"draw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, ok := NewModule(decl, "pkg", tt.filter)
			if !ok {
				t.Fatal("module unexpectedly excluded")
			}
			if got := names(mod.Functions); got != strings.Join(tt.functions, ",") {
				t.Errorf("functions = %s", got)
			}
			var classes []string
			for _, c := range mod.Classes {
				classes = append(classes, c.Name())
			}
			if strings.Join(classes, ",") != strings.Join(tt.classes, ",") {
				t.Errorf("classes = %v", classes)
			}
			if got := names(mod.Classes[0].Methods); got != strings.Join(tt.methods, ",") {
				t.Errorf("methods = %s", got)
			}
		})
	}
}

func TestNewModuleUndocumentedModuleExcludesEverything(t *testing.T) {
	t.Parallel()
	decl := &python.Module{
		Functions: []*python.Function{{Name: "documented", Docstring: strPtr("yes")}},
	}
	if mod, ok := NewModule(decl, "pkg", Filter{SkipUndoc: true}); ok || mod != nil {
		t.Errorf("expected module to be excluded, got %+v", mod)
	}
	if _, ok := NewModule(decl, "_pkg", Filter{SkipPrivate: true}); !ok {
		t.Error("private-looking module name should not exclude the module")
	}
}

func TestNewModuleMembersKeepSourceOrder(t *testing.T) {
	t.Parallel()
	decl := &python.Module{
		Docstring: strPtr("m"),
		Functions: []*python.Function{
			{Name: "first", Line: 1, Docstring: strPtr("d")},
			{Name: "_skipped", Line: 5, Docstring: strPtr("d")},
			{Name: "last", Line: 30, Docstring: strPtr("d")},
		},
		Classes: []*python.Class{
			{Name: "Middle", Line: 10, Docstring: strPtr("d")},
			{Name: "Later", Line: 20, Docstring: strPtr("d")},
		},
	}
	mod, _ := NewModule(decl, "pkg", Filter{SkipPrivate: true})

	var got []string
	for _, m := range mod.Members {
		got = append(got, m.Kind().String()+":"+m.Name())
	}
	want := "function:first,class:Middle,class:Later,function:last"
	if strings.Join(got, ",") != want {
		t.Errorf("members = %v, want %s", got, want)
	}
	if len(mod.Members) != len(mod.Classes)+len(mod.Functions) {
		t.Errorf("members and kind lists disagree: %d vs %d+%d",
			len(mod.Members), len(mod.Classes), len(mod.Functions))
	}
}

func names(fns []*Function) string {
	var out []string
	for _, f := range fns {
		out = append(out, f.Name())
	}
	return strings.Join(out, ",")
}
