// Package notebook decodes Jupyter notebooks (nbformat 4) into typed cell
// records. Media in outputs is decoded: base64 images become raw bytes.
package notebook

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/buger/jsonparser"
)

type CellKind int

const (
	CellMarkdown CellKind = iota
	CellCode
	CellRaw
)

func (k CellKind) String() string {
	switch k {
	case CellMarkdown:
		return "markdown"
	case CellCode:
		return "code"
	case CellRaw:
		return "raw"
	}
	return fmt.Sprintf("CellKind(%d)", int(k))
}

type OutputKind int

const (
	// OutputStream is stdout or stderr text.
	OutputStream OutputKind = iota
	// OutputDisplay covers display_data and execute_result.
	OutputDisplay
	OutputError
)

// Cell is one notebook cell. Outputs are only set for code cells.
type Cell struct {
	Kind    CellKind
	Source  string
	Outputs []Output
}

type Output struct {
	Kind OutputKind
	// Text is the stream text, or the error message for OutputError.
	Text string
	// Media maps a MIME type to its content.
	Media map[string][]byte
}

// binaryMedia are stored base64 encoded in notebook files.
var binaryMedia = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// DecodeFile reads and decodes the notebook at path.
func DecodeFile(path string) ([]Cell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	cells, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// Decode parses notebook JSON. Only Python notebooks in nbformat 4 are
// accepted.
func Decode(data []byte) ([]Cell, error) {
	major, err := jsonparser.GetInt(data, "nbformat")
	if err != nil {
		return nil, fmt.Errorf("missing nbformat version: %w", err)
	}
	if major != 4 {
		return nil, fmt.Errorf("unsupported nbformat %d (want 4)", major)
	}
	if lang := language(data); lang != "python" {
		if lang == "" {
			return nil, errors.New("notebook does not declare a language")
		}
		return nil, fmt.Errorf("unsupported notebook language %q", lang)
	}

	var cells []Cell
	var cellErr error
	_, err = jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if cellErr != nil {
			return
		}
		if err != nil {
			cellErr = err
			return
		}
		cell, err := decodeCell(value)
		if err != nil {
			cellErr = fmt.Errorf("cell %d: %w", len(cells), err)
			return
		}
		cells = append(cells, cell)
	}, "cells")
	if err != nil {
		return nil, fmt.Errorf("reading cells: %w", err)
	}
	if cellErr != nil {
		return nil, cellErr
	}
	return cells, nil
}

// language prefers language_info over the kernelspec.
func language(data []byte) string {
	if name, err := jsonparser.GetString(data, "metadata", "language_info", "name"); err == nil {
		return name
	}
	if name, err := jsonparser.GetString(data, "metadata", "kernelspec", "language"); err == nil {
		return name
	}
	return ""
}

func decodeCell(data []byte) (Cell, error) {
	typ, err := jsonparser.GetString(data, "cell_type")
	if err != nil {
		return Cell{}, fmt.Errorf("cell_type: %w", err)
	}
	source, err := multiline(data, "source")
	if err != nil {
		return Cell{}, err
	}

	switch typ {
	case "markdown":
		return Cell{Kind: CellMarkdown, Source: source}, nil
	case "raw":
		return Cell{Kind: CellRaw, Source: source}, nil
	case "code":
	default:
		return Cell{}, fmt.Errorf("unknown cell type %q", typ)
	}

	cell := Cell{Kind: CellCode, Source: source}
	var outErr error
	_, err = jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if outErr != nil {
			return
		}
		if err != nil {
			outErr = err
			return
		}
		out, err := decodeOutput(value)
		if err != nil {
			outErr = err
			return
		}
		cell.Outputs = append(cell.Outputs, out)
	}, "outputs")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return Cell{}, fmt.Errorf("outputs: %w", err)
	}
	return cell, outErr
}

func decodeOutput(data []byte) (Output, error) {
	typ, err := jsonparser.GetString(data, "output_type")
	if err != nil {
		return Output{}, fmt.Errorf("output_type: %w", err)
	}
	switch typ {
	case "stream":
		text, err := multiline(data, "text")
		return Output{Kind: OutputStream, Text: text}, err
	case "display_data", "execute_result":
		media, err := decodeMedia(data)
		return Output{Kind: OutputDisplay, Media: media}, err
	case "error":
		name, _ := jsonparser.GetString(data, "ename")
		value, _ := jsonparser.GetString(data, "evalue")
		return Output{Kind: OutputError, Text: name + ": " + value}, nil
	}
	return Output{}, fmt.Errorf("unknown output type %q", typ)
}

func decodeMedia(data []byte) (map[string][]byte, error) {
	media := make(map[string][]byte)
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		mime := string(key)
		var content []byte
		switch dataType {
		case jsonparser.String, jsonparser.Array:
			text, err := joinLines(value, dataType)
			if err != nil {
				return fmt.Errorf("%s: %w", mime, err)
			}
			content = []byte(text)
		default:
			// JSON media such as application/json is kept as raw JSON.
			content = append([]byte(nil), value...)
		}
		if binaryMedia[mime] {
			decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(content)), ""))
			if err != nil {
				return fmt.Errorf("%s: %w", mime, err)
			}
			content = decoded
		}
		media[mime] = content
		return nil
	}, "data")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, err
	}
	return media, nil
}

// multiline reads a field that nbformat allows as a string or a list of
// lines. A missing field is empty.
func multiline(data []byte, key string) (string, error) {
	value, dataType, _, err := jsonparser.Get(data, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	text, err := joinLines(value, dataType)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return text, nil
}

func joinLines(value []byte, dataType jsonparser.ValueType) (string, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Array:
		var b strings.Builder
		var lineErr error
		_, err := jsonparser.ArrayEach(value, func(line []byte, t jsonparser.ValueType, _ int, err error) {
			if lineErr != nil {
				return
			}
			if err != nil || t != jsonparser.String {
				lineErr = errors.New("expected a list of strings")
				return
			}
			s, err := jsonparser.ParseString(line)
			if err != nil {
				lineErr = err
				return
			}
			b.WriteString(s)
		})
		if err != nil {
			return "", err
		}
		return b.String(), lineErr
	}
	return "", fmt.Errorf("unexpected %s value", dataType)
}
