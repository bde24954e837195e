package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const (
	headerSignature = "# Sphinx inventory version 2"
	projectPrefix   = "# Project: "
	versionPrefix   = "# Version: "
	zlibNotice      = "# The remainder of this file is compressed using zlib."
)

// entryRe is the line grammar Sphinx itself uses; names may contain spaces.
var entryRe = regexp.MustCompile(`^(.+?)\s+(\S+)\s+(-?\d+)\s+?(\S*)\s+(.*)$`)

// DecodeFile decodes the inventory stored at path.
func DecodeFile(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening inventory: %w", err)
	}
	defer f.Close()

	inv, err := Decode(f)
	if err != nil {
		var ferr *FormatError
		if errors.As(err, &ferr) {
			ferr.Path = path
			return nil, ferr
		}
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return inv, nil
}

// Decode reads a version 2 inventory. Entries are returned in file order.
func Decode(r io.Reader) (*Inventory, error) {
	br := bufio.NewReader(r)
	inv := &Inventory{}

	header := make([]string, 4)
	for i := range header {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, &FormatError{Line: i + 1, Reason: "truncated header"}
		}
		header[i] = strings.TrimRight(line, "\r\n")
	}

	if header[0] != headerSignature {
		return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("unsupported header %q", header[0])}
	}
	if !strings.HasPrefix(header[1], projectPrefix) {
		return nil, &FormatError{Line: 2, Reason: "missing project line"}
	}
	inv.Project = strings.TrimPrefix(header[1], projectPrefix)
	if !strings.HasPrefix(header[2], versionPrefix) {
		return nil, &FormatError{Line: 3, Reason: "missing version line"}
	}
	inv.Version = strings.TrimPrefix(header[2], versionPrefix)
	if !strings.Contains(header[3], "zlib") {
		return nil, &FormatError{Line: 4, Reason: "payload is not zlib compressed"}
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, &FormatError{Line: 5, Reason: fmt.Sprintf("opening zlib stream: %v", err)}
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 4
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			return nil, &FormatError{Line: lineNo, Reason: err.Error()}
		}
		inv.Entries = append(inv.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, &FormatError{Line: lineNo + 1, Reason: fmt.Sprintf("reading compressed payload: %v", err)}
	}

	return inv, nil
}

func parseEntry(line string) (Entry, error) {
	m := entryRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, fmt.Errorf("malformed entry %q", line)
	}
	name, kindStr, prioStr, location, display := m[1], m[2], m[3], m[4], m[5]

	kind, err := ParseKind(kindStr)
	if err != nil {
		return Entry{}, err
	}
	prio, err := strconv.Atoi(prioStr)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid priority %q: %w", prioStr, err)
	}

	if strings.HasSuffix(location, "$") {
		location = location[:len(location)-1] + name
	}
	if display == "-" {
		display = name
	}

	return Entry{
		Name:        name,
		DisplayName: display,
		Kind:        kind,
		Priority:    prio,
		Location:    location,
	}, nil
}

// Encode writes inv in the version 2 format. Locations and display names
// are written in their abbreviated forms where possible.
func Encode(w io.Writer, inv *Inventory) error {
	header := fmt.Sprintf("%s\n%s%s\n%s%s\n%s\n",
		headerSignature, projectPrefix, inv.Project, versionPrefix, inv.Version, zlibNotice)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	zw := zlib.NewWriter(w)
	for _, e := range inv.Entries {
		location := e.Location
		if strings.HasSuffix(location, e.Name) && strings.Contains(location, "#") {
			location = strings.TrimSuffix(location, e.Name) + "$"
		}
		display := e.DisplayName
		if display == e.Name || display == "" {
			display = "-"
		}
		if _, err := fmt.Fprintf(zw, "%s %s %d %s %s\n", e.Name, e.Kind, e.Priority, location, display); err != nil {
			zw.Close()
			return fmt.Errorf("writing entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zlib writer: %w", err)
	}
	return nil
}
