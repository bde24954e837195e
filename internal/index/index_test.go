package index

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/savente93/snakedown/internal/docs"
	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/python"
)

func strPtr(s string) *string { return &s }

// stubParser returns canned declaration trees keyed by file name.
type stubParser map[string]*python.Module

func (p stubParser) ParseFile(path string) (*python.Module, error) {
	mod, ok := p[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no stub for %s", path)
	}
	return mod, nil
}

type linkRenderer struct{}

func (linkRenderer) RenderReference(display, prefix, target string) (string, error) {
	return fmt.Sprintf("[%s](%s|%s)", display, prefix, target), nil
}

func newIndex(t *testing.T, parser Parser) (*Index, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "pkg")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	idx, err := New(root, parser, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx, root
}

func TestNewDerivesPackageName(t *testing.T) {
	t.Parallel()
	idx, err := New(filepath.Join("some", "dir", "mypkg"), stubParser{}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if idx.PackageName() != "mypkg" {
		t.Errorf("package name = %q", idx.PackageName())
	}

	if _, err := New(string(filepath.Separator), stubParser{}, true, true); err == nil {
		t.Error("expected error for filesystem root")
	}
}

func TestDeriveImportPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rel  string
		want string
	}{
		{"a/b/__init__", "pkg.a.b"},
		{"a/b/c", "pkg.a.b.c"},
		{"a/b/c.py", "pkg.a.b.c"},
		{"__init__.py", "pkg"},
		{"mod.py", "pkg.mod"},
		{filepath.Join("x", "y", "__init__.py"), "pkg.x.y"},
	}
	for _, tt := range tests {
		if got := DeriveImportPath("pkg", tt.rel); got != tt.want {
			t.Errorf("DeriveImportPath(pkg, %q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestInsertRejectsDuplicates(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	if err := idx.Insert("pkg.f", docs.NewFunction("f", nil)); err != nil {
		t.Fatal(err)
	}
	err := idx.Insert("pkg.f", docs.NewFunction("f", strPtr("second")))
	var dup *DuplicateSymbolError
	if !errors.As(err, &dup) || dup.Name != "pkg.f" {
		t.Fatalf("expected DuplicateSymbolError, got %v", err)
	}
	obj, _ := idx.Object("pkg.f")
	if _, ok := obj.Docstring(); ok {
		t.Error("duplicate insert overwrote the original object")
	}
}

func TestIndexFileRegistersNestedSymbols(t *testing.T) {
	t.Parallel()
	parser := stubParser{
		"mod.py": {
			Docstring: strPtr("module"),
			Classes: []*python.Class{{
				Name:      "Greeter",
				Docstring: strPtr("greets"),
				Methods:   []*python.Function{{Name: "greet", Docstring: strPtr("hi")}},
			}},
			Functions: []*python.Function{{Name: "helper", Docstring: strPtr("helps")}},
		},
	}
	idx, root := newIndex(t, parser)
	if err := idx.IndexFile(filepath.Join(root, "sub", "mod.py")); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	want := []string{"pkg.sub.mod", "pkg.sub.mod.Greeter", "pkg.sub.mod.Greeter.greet", "pkg.sub.mod.helper"}
	if got := idx.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", got, want)
	}
	mod, _ := idx.Object("pkg.sub.mod")
	if mod.Name() != "mod" || mod.Kind() != docs.KindModule {
		t.Errorf("module object = %s %s", mod.Kind(), mod.Name())
	}
}

func TestIndexFileDuplicateDeclarationIsAnError(t *testing.T) {
	t.Parallel()
	parser := stubParser{
		"mod.py": {
			Docstring: strPtr("module"),
			Functions: []*python.Function{
				{Name: "f", Docstring: strPtr("first")},
				{Name: "f", Docstring: strPtr("redefined")},
			},
		},
	}
	idx, root := newIndex(t, parser)
	err := idx.IndexFile(filepath.Join(root, "mod.py"))
	var dup *DuplicateSymbolError
	if !errors.As(err, &dup) || dup.Name != "pkg.mod.f" {
		t.Fatalf("expected duplicate pkg.mod.f, got %v", err)
	}
}

func TestIndexFileUndocumentedModuleHidesContents(t *testing.T) {
	t.Parallel()
	parser := stubParser{
		"mod.py": {
			Functions: []*python.Function{{Name: "documented", Docstring: strPtr("yes")}},
		},
	}
	root := filepath.Join(t.TempDir(), "pkg")
	idx, err := New(root, parser, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(filepath.Join(root, "mod.py")); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected nothing indexed, got %v", idx.Names())
	}
}

func TestIndexFileOutsideRoot(t *testing.T) {
	t.Parallel()
	idx, root := newIndex(t, stubParser{})
	if err := idx.IndexFile(filepath.Join(filepath.Dir(root), "other.py")); err == nil {
		t.Error("expected error for file outside the package root")
	}
}

func TestIndexFileParseFailure(t *testing.T) {
	t.Parallel()
	idx, root := newIndex(t, stubParser{})
	if err := idx.IndexFile(filepath.Join(root, "unknown.py")); err == nil {
		t.Error("expected parse failure to propagate")
	}
}

func TestAddExternalLastWriterWins(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.AddExternal("numpy", "https://a.example/")
	idx.AddExternal("numpy", "https://b.example/")
	if u, _ := idx.External("numpy"); u != "https://b.example/" {
		t.Errorf("external = %q", u)
	}
}

func TestAddInventoryAppliesAllowList(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	base, _ := url.Parse("https://numpy.org/doc/stable/")
	inv := &inventory.Inventory{Entries: []inventory.Entry{
		{Name: "numpy.fft", Kind: inventory.Kind{Domain: inventory.DomainPython, Role: "module"}, Location: "reference/routines.fft.html#module-numpy.fft"},
		{Name: "user/index", Kind: inventory.Kind{Domain: inventory.DomainStd, Role: "doc"}, Location: "user/index.html"},
		{Name: "basics", Kind: inventory.Kind{Domain: inventory.DomainStd, Role: "label"}, Location: "user/basics.html#basics"},
		{Name: "NPY_MAXDIMS", Kind: inventory.Kind{Domain: inventory.DomainC, Role: "macro"}, Location: "c.html#NPY_MAXDIMS"},
	}}

	if n := idx.AddInventory(base, inv); n != 2 {
		t.Errorf("imported %d entries, want 2", n)
	}
	if u, _ := idx.External("numpy.fft"); u != "https://numpy.org/doc/stable/reference/routines.fft.html#module-numpy.fft" {
		t.Errorf("numpy.fft url = %q", u)
	}
	if u, _ := idx.External("user/index"); u != "https://numpy.org/doc/stable/user/index.html" {
		t.Errorf("user/index url = %q", u)
	}
	for _, dropped := range []string{"basics", "NPY_MAXDIMS"} {
		if _, ok := idx.External(dropped); ok {
			t.Errorf("%s should not be imported", dropped)
		}
	}
}

func TestValidateReferencesCollectsAllErrors(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.AddExternal("numpy.fft", "https://numpy.org/doc/stable/reference/routines.fft.html")
	idx.Insert("pkg.mod", docs.NewFunction("mod", strPtr("see [[pkg.mod.good]] and [[numpy.fft]]")))
	idx.Insert("pkg.mod.good", docs.NewFunction("good", strPtr("fine")))
	idx.Insert("pkg.mod.bad", docs.NewFunction("bad",
		strPtr("[[nimpy.fft]] then [[pkg.mod.goood]] then [[completely.unrelated.and.very.long.name]]")))

	err := idx.ValidateReferences()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(verr.Errors), err)
	}

	want := []struct {
		target     string
		suggestion string
		distance   int
	}{
		{"nimpy.fft", "numpy.fft", 1},
		{"pkg.mod.goood", "pkg.mod.good", 1},
		{"completely.unrelated.and.very.long.name", "", 0},
	}
	for i, w := range want {
		got := verr.Errors[i]
		if got.Object != "pkg.mod.bad" || got.Target != w.target || got.Suggestion != w.suggestion || got.Distance != w.distance {
			t.Errorf("error %d = %+v, want %+v", i, got, w)
		}
	}

	var uerr *UnresolvedReferenceError
	if !errors.As(err, &uerr) {
		t.Error("ValidationError should unwrap to UnresolvedReferenceError")
	}
}

func TestValidateReferencesPasses(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.Insert("pkg.a", docs.NewFunction("a", strPtr("[[pkg.b]]")))
	idx.Insert("pkg.b", docs.NewFunction("b", nil))
	if err := idx.ValidateReferences(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSuggestPrefersInternalOnTie(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.Insert("pkg.abc", docs.NewFunction("abc", nil))
	idx.AddExternal("pkg.abd", "https://example.com/abd")
	idx.AddExternal("pkg.xyzw", "https://example.com/xyzw")

	s, ok := idx.Suggest("pkg.abe")
	if !ok || s.Candidate != "pkg.abc" {
		t.Errorf("got %+v, want internal pkg.abc", s)
	}

	idx.AddExternal("pkg.abe", "https://example.com/abe")
	s, _ = idx.Suggest("pkg.abe")
	if s.Candidate != "pkg.abe" || s.Distance != 0 {
		t.Errorf("strictly closer external should win, got %+v", s)
	}
}

func TestSuggesterSnapshotsNames(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.Insert("pkg.abc", docs.NewFunction("abc", nil))
	idx.AddExternal("pkg.abd", "https://example.com/abd")

	sg := idx.newSuggester()
	for _, name := range []string{"pkg.abe", "pkg.abd", "pkg.zzzzzzzzzzzz"} {
		want, wantOK := idx.Suggest(name)
		got, ok := sg.suggest(name)
		if got != want || ok != wantOK {
			t.Errorf("suggest(%q) = %+v, %v; want %+v, %v", name, got, ok, want, wantOK)
		}
	}

	// Names added later are not seen by an existing suggester.
	idx.AddExternal("pkg.abe", "https://example.com/abe")
	if s, _ := sg.suggest("pkg.abe"); s.Candidate != "pkg.abc" {
		t.Errorf("suggester picked up a later name: %+v", s)
	}
}

func BenchmarkValidateReferencesManyExternals(b *testing.B) {
	root := filepath.Join(b.TempDir(), "pkg")
	idx, err := New(root, stubParser{}, false, false)
	if err != nil {
		b.Fatal(err)
	}
	for i := range 50000 {
		idx.AddExternal(fmt.Sprintf("numpy.mod%d.func%d", i%100, i), "https://numpy.org/")
	}
	var doc strings.Builder
	for i := range 50 {
		fmt.Fprintf(&doc, "[[numpy.mod%d.fnuc%d]] ", i, i)
	}
	idx.Insert("pkg.mod", docs.NewFunction("mod", strPtr(doc.String())))

	b.ResetTimer()
	for range b.N {
		if err := idx.ValidateReferences(); err == nil {
			b.Fatal("expected unresolved references")
		}
	}
}

func TestPreProcessExpandsOnce(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	idx.AddExternal("numpy.fft", "https://numpy.org/fft.html")
	idx.Insert("pkg.a", docs.NewFunction("a", strPtr("[[pkg.b|the b]] uses [[numpy.fft]]")))
	idx.Insert("pkg.b", docs.NewFunction("b", strPtr("no markers")))

	if err := idx.PreProcess(linkRenderer{}, "api/"); err != nil {
		t.Fatalf("PreProcess: %v", err)
	}
	obj, _ := idx.Object("pkg.a")
	first, _ := obj.Docstring()
	want := "[the b](api/|pkg.b) uses [numpy.fft](api/|https://numpy.org/fft.html)"
	if first != want {
		t.Errorf("docstring = %q, want %q", first, want)
	}

	if err := idx.PreProcess(linkRenderer{}, "other/"); err != nil {
		t.Fatal(err)
	}
	second, _ := obj.Docstring()
	if second != first {
		t.Errorf("second PreProcess changed output: %q", second)
	}
}

func TestIndexPackage(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "pkg")
	files := map[string]string{
		"__init__.py":              `"""Root package."""`,
		"core.py":                  "\"\"\"Core.\"\"\"\n\ndef run():\n    \"\"\"Run it. See [[pkg.util.helper]].\"\"\"\n",
		"util.py":                  "\"\"\"Utilities.\"\"\"\n\ndef helper():\n    \"\"\"Helps.\"\"\"\n",
		"tests/test_core.py":       "\"\"\"Tests.\"\"\"\n\ndef test_run():\n    \"\"\"Checks run.\"\"\"\n",
		"excluded_file.py":         `"""Excluded."""`,
		".hidden/secret.py":        `"""Hidden."""`,
		"__pycache__/core.py":      `"""Cached."""`,
		"undocumented/__init__.py": "def visible():\n    \"\"\"Not reached.\"\"\"\n",
		"README.md":                "# not python",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := New(root, python.NewParser(), true, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexPackage([]string{"pkg/tests", "pkg/excluded_file.py"}); err != nil {
		t.Fatalf("IndexPackage: %v", err)
	}

	want := []string{"pkg", "pkg.core", "pkg.core.run", "pkg.util", "pkg.util.helper"}
	if got := idx.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", got, want)
	}
	if err := idx.ValidateReferences(); err != nil {
		t.Errorf("ValidateReferences: %v", err)
	}
}

func TestIndexPackageRejectsBadPattern(t *testing.T) {
	t.Parallel()
	idx, _ := newIndex(t, stubParser{})
	if err := idx.IndexPackage([]string{"pkg/[unclosed"}); err == nil {
		t.Error("expected invalid pattern error")
	}
}
