package inventory

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// rawInventory builds inventory bytes from a header and uncompressed body.
func rawInventory(t *testing.T, header, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(header)
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const v2Header = "# Sphinx inventory version 2\n# Project: NumPy\n# Version: 2.1\n# The remainder of this file is compressed using zlib.\n"

func TestDecode(t *testing.T) {
	t.Parallel()
	body := strings.Join([]string{
		"numpy.fft py:module 1 reference/routines.fft.html#module-$ -",
		"numpy.ndarray py:class 1 reference/generated/numpy.ndarray.html#$ -",
		"numpy.ndarray.shape py:attribute 1 reference/generated/numpy.ndarray.shape.html#$ -",
		"user/index std:doc -1 user/index.html NumPy user guide",
		"basics.indexing std:label -1 user/basics.indexing.html#$ Indexing on ndarrays",
		"NPY_MAXDIMS c:macro 1 reference/c-api/array.html#c.$ -",
		"",
		"ufunc.at http:get 1 api.html#get-ufunc -",
	}, "\n") + "\n"

	inv, err := Decode(bytes.NewReader(rawInventory(t, v2Header, body)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inv.Project != "NumPy" || inv.Version != "2.1" {
		t.Errorf("project/version = %q/%q", inv.Project, inv.Version)
	}
	if len(inv.Entries) != 7 {
		t.Fatalf("got %d entries, want 7", len(inv.Entries))
	}

	fft := inv.Entries[0]
	if fft.Location != "reference/routines.fft.html#module-numpy.fft" {
		t.Errorf("location = %q", fft.Location)
	}
	if fft.DisplayName != "numpy.fft" {
		t.Errorf("display = %q", fft.DisplayName)
	}
	if fft.Kind != (Kind{Domain: DomainPython, Role: "module"}) {
		t.Errorf("kind = %v", fft.Kind)
	}

	guide := inv.Entries[3]
	if guide.DisplayName != "NumPy user guide" || guide.Priority != -1 {
		t.Errorf("guide = %+v", guide)
	}
	if !guide.Kind.Importable() {
		t.Error("std:doc should be importable")
	}

	label := inv.Entries[4]
	if label.Kind.Importable() {
		t.Error("std:label should not be importable")
	}
	if label.DisplayName != "Indexing on ndarrays" {
		t.Errorf("display = %q", label.DisplayName)
	}

	other := inv.Entries[6]
	if other.Kind.Domain != DomainOther || other.Kind.String() != "http:get" {
		t.Errorf("kind = %v (%s)", other.Kind, other.Kind.Domain)
	}
}

func TestDecodeNameWithSpaces(t *testing.T) {
	t.Parallel()
	body := "a name with spaces std:label -1 page.html#anchor A Title\n"
	inv, err := Decode(bytes.NewReader(rawInventory(t, v2Header, body)))
	if err != nil {
		t.Fatal(err)
	}
	if got := inv.Entries[0].Name; got != "a name with spaces" {
		t.Errorf("name = %q", got)
	}
}

func TestDecodeFormatErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"version_1", []byte("# Sphinx inventory version 1\n# Project: x\n# Version: 1\nfoo mod foo.html\n")},
		{"missing_project", rawInventory(t, "# Sphinx inventory version 2\n# Version: 1\n# zlib\n# zlib\n", "")},
		{"not_zlib", []byte(v2Header + "plain text, not compressed\n")},
		{"bad_line", rawInventory(t, v2Header, "justonefield\n")},
		{"bad_kind", rawInventory(t, v2Header, "foo nodomain 1 foo.html -\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected *FormatError, got %v", err)
			}
		})
	}
}

func TestDecodeFileNamesThePath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.inv")
	if err := os.WriteFile(path, []byte("not an inventory\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := DecodeFile(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if ferr.Path != path || !strings.Contains(err.Error(), path) {
		t.Errorf("error does not name the file: %v", err)
	}

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.inv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestEncodeDecodeAbbreviations(t *testing.T) {
	t.Parallel()
	in := &Inventory{
		Project: "demo",
		Version: "0.1",
		Entries: []Entry{
			{Name: "demo.f", DisplayName: "demo.f", Kind: Kind{Domain: DomainPython, Role: "function"}, Priority: 1, Location: "api.html#demo.f"},
			{Name: "index", DisplayName: "Welcome", Kind: Kind{Domain: DomainStd, Role: "doc"}, Priority: -1, Location: "index.html"},
		},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatal(err)
	}

	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("got %d entries", len(out.Entries))
	}
	for i := range in.Entries {
		if out.Entries[i] != in.Entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out.Entries[i], in.Entries[i])
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	for _, bad := range []string{"", "py", ":function", "py:"} {
		if _, err := ParseKind(bad); err == nil {
			t.Errorf("ParseKind(%q) succeeded", bad)
		}
	}
	k, err := ParseKind("py:method")
	if err != nil || k.Domain != DomainPython || k.Role != "method" || !k.Importable() {
		t.Errorf("ParseKind(py:method) = %+v, %v", k, err)
	}
}
