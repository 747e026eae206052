// Package reporting prints human readable summaries of sketch files.
package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/will-rowe/skim/src/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Summary writes the config of a store followed by a table with a row per sample
func Summary(w io.Writer, s *store.Store) error {
	config := s.Config
	if _, err := fmt.Fprintln(w, titleStyle.Render("sketch settings")); err != nil {
		return err
	}
	settings := [][2]string{
		{"k-mer size", strconv.FormatUint(uint64(config.KmerSize), 10)},
		{"sketch size", strconv.FormatUint(uint64(config.Capacity), 10)},
		{"filter", config.Filter.String()},
		{"hasher", string(config.Hasher)},
		{"compression", s.Codec().String()},
		{"samples", strconv.Itoa(s.Len())},
	}
	for _, setting := range settings {
		if _, err := fmt.Fprintf(w, "  %-12s %s\n", setting[0], setting[1]); err != nil {
			return err
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("sample", "hashes", "total abundance", "max hash").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, sketch := range s.Sketches() {
		t.Row(sketch.Name, strconv.Itoa(sketch.Len()), strconv.FormatUint(sketch.TotalAbundance(), 10), fmt.Sprintf("%016x", sketch.MaxHash()))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
