package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

func validateOutputFormat(outputFormat string) error {
	switch strings.ToLower(outputFormat) {
	case outputTable:
	case outputYAML:
	case outputJSON:
	default:
		return errors.Errorf("unknown output format %q", outputFormat)
	}
	return nil
}

// writeOutput prints obj in the requested format. fillTable is only called
// for table output, with a fresh table to add rows to.
func writeOutput(
	w io.Writer,
	outputFormat string,
	obj interface{},
	fillTable func(table *uitable.Table),
) error {
	switch strings.ToLower(outputFormat) {
	case outputTable:
		table := uitable.New()
		table.MaxColWidth = 60
		table.Wrap = true
		fillTable(table)
		fmt.Fprintln(w, table)

	case outputYAML:
		yamlBytes, err := yaml.Marshal(obj)
		if err != nil {
			return errors.Wrap(err, "error formatting output")
		}
		fmt.Fprintln(w, string(yamlBytes))

	case outputJSON:
		prettyJSON, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return errors.Wrap(err, "error formatting output")
		}
		fmt.Fprintln(w, string(prettyJSON))

	default:
		return validateOutputFormat(outputFormat)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
