package headline

import (
	"fmt"

	"sigmine-dashboard/internal/aggregator"
)

// Card is one headline metric shown above a chart.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Help  string `json:"help,omitempty"`
}

// Generate builds the top-N / others cards for a series: absolute values
// first, then shares of the baseline. The absolute cards are returned even
// when the shares cannot be computed.
func Generate(s aggregator.Series) ([]Card, error) {
	topLabel := fmt.Sprintf("Top %d empresas possuem", len(s.Points))
	othersLabel := fmt.Sprintf("Outras %d empresas possuem", s.OthersCompanies)
	others := s.BaselineTotal - s.TopSum()
	if s.Others != nil {
		others = s.Others.Value
	}

	cards := []Card{
		{Label: topLabel, Value: formatValue(s.Measure, s.TopSum())},
		{Label: othersLabel, Value: formatValue(s.Measure, others), Help: baselineHelp(s)},
	}

	sh, err := s.Shares()
	if err != nil {
		return cards, err
	}
	cards = append(cards,
		Card{Label: topLabel, Value: aggregator.FormatPercent(sh.Top) + "% " + shareSuffix(s.Measure)},
		Card{Label: othersLabel, Value: aggregator.FormatPercent(sh.Others) + "% " + shareSuffix(s.Measure), Help: baselineHelp(s)},
	)
	return cards, nil
}

// Summary renders the stats pair as cards.
func Summary(res *aggregator.Result) []Card {
	var out []Card
	for _, sub := range []aggregator.Subset{aggregator.SubsetAll, aggregator.SubsetFiltered} {
		st := res.Stats(sub)
		suffix := "(todos)"
		if sub == aggregator.SubsetFiltered {
			suffix = "(filtrados)"
		}
		out = append(out,
			Card{Label: "Empresas " + suffix, Value: fmt.Sprintf("%d", st.Companies)},
			Card{Label: "DMs " + suffix, Value: formatValue(aggregator.MeasureCount, float64(st.Records))},
			Card{Label: "Área total " + suffix, Value: formatValue(aggregator.MeasureArea, st.Area)},
		)
	}
	return out
}

func formatValue(m aggregator.Measure, v float64) string {
	switch m {
	case aggregator.MeasureCount:
		return fmt.Sprintf("%.0f DMs", v)
	case aggregator.MeasureAmount:
		return fmt.Sprintf("R$ %.2f", v)
	default:
		return fmt.Sprintf("%.2f ha", v)
	}
}

func shareSuffix(m aggregator.Measure) string {
	switch m {
	case aggregator.MeasureCount:
		return "dos DMs"
	case aggregator.MeasureAmount:
		return "da arrecadação"
	default:
		return "da área"
	}
}

func baselineHelp(s aggregator.Series) string {
	return fmt.Sprintf("relativo ao total %s", s.Baseline)
}
