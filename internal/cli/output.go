// Package cli renders command output in table, json, or yaml form.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagfile/ast"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// FlagSummary is one row of `ff list` output.
type FlagSummary struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Owner       string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Expires     string   `json:"expires,omitempty" yaml:"expires,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Rules       int      `json:"rules" yaml:"rules"`
	Requires    []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Summarize flattens a parsed document into list rows, in definition
// order.
func Summarize(doc *ast.FlagFile) []FlagSummary {
	out := make([]FlagSummary, 0, len(doc.Order))
	for _, name := range doc.Order {
		def := doc.Flags[name]
		s := FlagSummary{
			Name:        name,
			Type:        def.Metadata.Type,
			Owner:       def.Metadata.Owner,
			Deprecated:  def.Metadata.Deprecated != "",
			Rules:       len(def.Rules),
			Requires:    def.Metadata.Requires,
			Description: def.Metadata.Description,
		}
		if def.Metadata.Expires != nil {
			s.Expires = def.Metadata.Expires.Format("2006-01-02")
		}
		out = append(out, s)
	}
	return out
}

// PrintFlags writes flag rows in the chosen format. withDescription adds
// the description column to table output; json and yaml always carry it.
func PrintFlags(w io.Writer, flags []FlagSummary, format OutputFormat, withDescription bool) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]FlagSummary{"flags": flags})
	case FormatYAML:
		return printYAML(w, map[string][]FlagSummary{"flags": flags})
	case FormatTable:
		return printTable(w, flags, withDescription)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

// FormatValue renders a resolved flag value as bare text, the way
// `ff eval` prints it.
func FormatValue(v ast.FlagValue) string {
	switch v := v.(type) {
	case ast.OnOff:
		if v {
			return "true"
		}
		return "false"
	case ast.Integer:
		return fmt.Sprintf("%d", int64(v))
	case ast.Str:
		return string(v)
	case ast.JSON:
		b, err := json.Marshal(v.Value)
		if err != nil {
			return fmt.Sprintf("%v", v.Value)
		}
		return string(b)
	default:
		return ""
	}
}

func printTable(w io.Writer, flags []FlagSummary, withDescription bool) error {
	table := tablewriter.NewWriter(w)

	if withDescription {
		table.Header("Name", "Type", "Owner", "Expires", "Rules", "Description")
	} else {
		table.Header("Name", "Type", "Owner", "Expires", "Rules")
	}

	for _, flag := range flags {
		name := flag.Name
		if flag.Deprecated {
			name += " (deprecated)"
		}
		rules := fmt.Sprintf("%d", flag.Rules)

		if withDescription {
			description := flag.Description
			if len(description) > 40 {
				description = description[:37] + "..."
			}
			table.Append(name, flag.Type, flag.Owner, flag.Expires, rules, description)
		} else {
			table.Append(name, flag.Type, flag.Owner, flag.Expires, rules)
		}
	}

	return table.Render()
}
