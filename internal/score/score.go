// Package score compares stored runs across modes and renders scorecards.
package score

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hmcrab/bakeoff/internal/result"
)

// Row is one mode's latest result for a scenario.
type Row struct {
	Mode   string
	Result *result.RunResult
}

// Card compares a scenario's latest run per mode.
type Card struct {
	Scenario string
	Rows     []Row
}

// Build assembles a scorecard from the latest stored run per mode.
func Build(store *result.Store, scenarioName string) (*Card, error) {
	latest, err := store.LatestByMode(scenarioName)
	if err != nil {
		return nil, err
	}

	card := &Card{Scenario: scenarioName}
	for m, r := range latest {
		card.Rows = append(card.Rows, Row{Mode: m, Result: r})
	}
	sortRows(card.Rows)
	return card, nil
}

// BuildAll assembles scorecards for every scenario with stored runs.
func BuildAll(store *result.Store) ([]*Card, error) {
	names, err := store.Scenarios()
	if err != nil {
		return nil, err
	}
	var cards []*Card
	for _, name := range names {
		card, err := Build(store, name)
		if err != nil {
			return nil, err
		}
		if len(card.Rows) > 0 {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// sortRows orders the control baseline first, everything else by slug.
func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := rows[i].Mode == "remote", rows[j].Mode == "remote"
		if ri != rj {
			return ri
		}
		return rows[i].Mode < rows[j].Mode
	})
}

// WriteTable renders the scorecard as an aligned terminal table.
func (c *Card) WriteTable(w io.Writer) {
	fmt.Fprintf(w, "\nScenario: %s\n", c.Scenario)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tVERDICT\tTESTS\tWALL CLOCK\tTOKENS IN/OUT\tCOST (USD)")
	for _, row := range c.Rows {
		r := row.Result
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1fs\t%d/%d\t%s\n",
			row.Mode,
			r.Judge.Verdict(),
			testsCell(r),
			r.WallClockS,
			r.TotalInput, r.TotalOutput,
			costCell(r),
		)
	}
	_ = tw.Flush()
}

// Markdown renders scorecards as a results document.
func Markdown(cards []*Card) string {
	var sb strings.Builder
	sb.WriteString("# Bakeoff Results\n\n")

	for _, c := range cards {
		fmt.Fprintf(&sb, "## %s\n\n", c.Scenario)
		sb.WriteString("| Mode | Verdict | Tests | Wall Clock | Tokens In/Out | Cost (USD) |\n")
		sb.WriteString("|------|---------|-------|------------|---------------|------------|\n")
		for _, row := range c.Rows {
			r := row.Result
			fmt.Fprintf(&sb, "| %s | %s | %s | %.1fs | %d/%d | %s |\n",
				row.Mode,
				r.Judge.Verdict(),
				testsCell(r),
				r.WallClockS,
				r.TotalInput, r.TotalOutput,
				costCell(r),
			)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func testsCell(r *result.RunResult) string {
	if r.Judge == nil || !r.Judge.Ran {
		return "-"
	}
	return fmt.Sprintf("%d/%d", r.Judge.Passed, r.Judge.Total)
}

func costCell(r *result.RunResult) string {
	if !r.CostKnown {
		return "unknown"
	}
	return fmt.Sprintf("%.4f", r.EstimatedCostUSD)
}
