package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/oscctl/internal/catalog"
	"github.com/danmuck/oscctl/internal/router"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle  = lipgloss.NewStyle().Width(14)
	addrStyle   = lipgloss.NewStyle().Width(48)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func validFormat(format string) error {
	switch strings.ToLower(format) {
	case formatTable, formatYAML, formatJSON:
		return nil
	}
	return errors.Errorf("unknown output format %q (want table, yaml or json)", format)
}

// writeStructured renders v as yaml or json. It reports false for the
// table format so callers fall back to their own layout.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch strings.ToLower(format) {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, errors.Wrap(err, "encoding yaml")
		}
		return true, errors.Wrap(enc.Close(), "encoding yaml")
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, errors.Wrap(enc.Encode(v), "encoding json")
	}
	return false, nil
}

func renderEntries(w io.Writer, title string, entries []catalog.Entry) {
	fmt.Fprintln(w, headerStyle.Render(title))
	for _, e := range entries {
		fmt.Fprintf(w, "  %s%s%s\n",
			labelStyle.Render(e.Label),
			addrStyle.Render(e.Address),
			dimStyle.Render(formatArgs(e.Args)))
	}
}

func renderSheet(w io.Writer, sheet catalog.Sheet) {
	renderEntries(w, fmt.Sprintf("Clips (layer %d)", sheet.Layer), sheet.Clips)
	renderEntries(w, "Layers", sheet.Layers)
	renderEntries(w, "Opacity presets", sheet.Opacity)
	renderEntries(w, "Diagnostic", []catalog.Entry{sheet.Diagnostic})
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func renderState(w io.Writer, st router.State) {
	status := okStyle.Render(st.Status)
	if !st.Connected {
		status = errStyle.Render(st.Status)
	}
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("status:"), status)
	if st.LastMessage != "" {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("last:"), st.LastMessage)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("error:"), errStyle.Render(st.Error))
	}
	for _, addr := range st.SentMessages {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("sent"), addr)
	}
}
