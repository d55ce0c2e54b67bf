package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/cloneval/domain"
)

// Format is the encoding of a judgments file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath infers the format from a file extension. YAML is the
// fallback since it also reads JSON.
func FormatFromPath(p string) Format {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		return FormatYAML
	}
}

type document struct {
	Pairs []declarationNode `yaml:"pairs"`
}

type declarationNode struct {
	A        string `yaml:"a"`
	B        string `yaml:"b"`
	Type     string `yaml:"type"`
	Judgment string `yaml:"judgment"`
	line     int
}

// UnmarshalYAML records the source line of each entry.
func (d *declarationNode) UnmarshalYAML(node *yaml.Node) error {
	type plain declarationNode
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = declarationNode(p)
	d.line = node.Line
	return nil
}

// Decode reads judged pair declarations. YAML and JSON documents hold a
// top-level "pairs" list of {a, b, type, judgment}; CSV rows are
// a,b,type,judgment with an optional header.
func Decode(r io.Reader, format Format) ([]domain.ReferenceDeclaration, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return decodeDocument(r)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, domain.NewUnsupportedFormatError(string(format))
	}
}

func decodeDocument(r io.Reader) ([]domain.ReferenceDeclaration, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.ReferenceDeclaration{}, nil
		}
		return nil, domain.NewMalformedReferenceError("cannot decode reference document", err)
	}
	out := make([]domain.ReferenceDeclaration, len(doc.Pairs))
	for i, p := range doc.Pairs {
		out[i] = domain.ReferenceDeclaration{
			First:    domain.FragmentID(strings.TrimSpace(p.A)),
			Second:   domain.FragmentID(strings.TrimSpace(p.B)),
			Type:     p.Type,
			Judgment: p.Judgment,
			Line:     p.line,
		}
	}
	return out, nil
}

func decodeCSV(r io.Reader) ([]domain.ReferenceDeclaration, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var out []domain.ReferenceDeclaration
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewMalformedReferenceError("cannot decode reference csv", err)
		}
		line, _ := cr.FieldPos(0)
		if len(fields) != 4 {
			return nil, domain.NewMalformedReferenceError(
				fmt.Sprintf("line %d: expected 4 fields (a,b,type,judgment), got %d", line, len(fields)), nil)
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "a") {
			continue
		}
		out = append(out, domain.ReferenceDeclaration{
			First:    domain.FragmentID(strings.TrimSpace(fields[0])),
			Second:   domain.FragmentID(strings.TrimSpace(fields[1])),
			Type:     fields[2],
			Judgment: fields[3],
			Line:     line,
		})
	}
	if out == nil {
		out = []domain.ReferenceDeclaration{}
	}
	return out, nil
}
