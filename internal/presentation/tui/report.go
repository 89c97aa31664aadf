package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// OutcomeMarkdown renders a rollback result.
func OutcomeMarkdown(model string, out domain.Outcome) string {
	var sb strings.Builder
	if model == "" {
		model = "model"
	}
	fmt.Fprintf(&sb, "# Rollback: %s\n\n", model)
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	if out.Strategy != "" {
		fmt.Fprintf(&sb, "| Strategy | **%s** |\n", out.Strategy)
	}
	fmt.Fprintf(&sb, "| Expected cost | %s |\n", num(out.Cost))
	fmt.Fprintf(&sb, "| Expected effectiveness | %s |\n", num(out.Effectiveness))
	return sb.String()
}

// TornadoMarkdown renders sensitivity bars, widest swing first.
func TornadoMarkdown(model string, res domain.TornadoResult) string {
	var sb strings.Builder
	if model == "" {
		model = "model"
	}
	fmt.Fprintf(&sb, "# Sensitivity: %s\n\n", model)
	fmt.Fprintf(&sb, "Base effectiveness: **%s**\n\n", num(res.BaseOutcome))
	if len(res.Bars) == 0 {
		sb.WriteString("_No variables to vary._\n")
		return sb.String()
	}
	sb.WriteString("| Variable | Low | High | Swing |\n|---|---|---|---|\n")
	for _, b := range res.Bars {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", b.VariableName, num(b.LowImpact), num(b.HighImpact), num(b.Swing()))
	}
	return sb.String()
}

// TraceMarkdown renders the cohort distribution per cycle. maxRows <= 0 prints every cycle.
func TraceMarkdown(trace *runtime.MarkovTrace, maxRows int) string {
	var sb strings.Builder
	sb.WriteString("## Markov trace\n\n")
	if trace == nil || len(trace.Cycles) == 0 {
		sb.WriteString("_Empty trace._\n")
		return sb.String()
	}

	sb.WriteString("| Cycle |")
	for _, s := range trace.States {
		fmt.Fprintf(&sb, " %s |", s)
	}
	sb.WriteString(" Cost | Utility |\n|---|")
	sb.WriteString(strings.Repeat("---|", len(trace.States)+2))
	sb.WriteString("\n")

	for i, c := range trace.Cycles {
		if maxRows > 0 && i >= maxRows {
			fmt.Fprintf(&sb, "\n_%d more cycles omitted._\n", len(trace.Cycles)-maxRows)
			break
		}
		fmt.Fprintf(&sb, "| %d |", c.Cycle)
		for _, share := range c.Cohort {
			fmt.Fprintf(&sb, " %s |", num(share))
		}
		fmt.Fprintf(&sb, " %s | %s |\n", num(c.Cost), num(c.Utility))
	}
	return sb.String()
}
