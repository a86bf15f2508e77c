package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Width(30)

	valueStyle = lipgloss.NewStyle().Bold(true)
)

// Render formats the metrics as a bordered terminal report.
func (m *Metrics) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("BACKTEST %s", strings.ToUpper(m.Name))))
	b.WriteString("\n")

	mode := "linear"
	if m.Logarithmic {
		mode = "logarithmic"
	}

	b.WriteString(sectionStyle.Render("RUN"))
	b.WriteString("\n")
	writeRow(&b, "Period", m.Period.String())
	writeRow(&b, "Resampling Freq", m.Freq.String())
	writeRow(&b, "Mode", mode)

	b.WriteString(sectionStyle.Render("PERFORMANCE"))
	b.WriteString("\n")
	writeRow(&b, "Win Ratio", percent(m.WinRatio))
	writeRow(&b, "Profit Average", number(m.ProfitMean))
	writeRow(&b, "Profit Median", number(m.ProfitMedian))
	writeRow(&b, "Profit Std", number(m.ProfitStd))
	writeRow(&b, "Annual Volatility", number(m.AnnualVolatility))
	writeRow(&b, "Annual Sharpe Ratio", number(m.AnnualSharpe))
	writeRow(&b, "Annual Sortino Ratio", number(m.AnnualSortino))
	writeRow(&b, "Max Drawdown", percentOrNumber(m.MaxDrawdown, m.Logarithmic))

	b.WriteString(sectionStyle.Render("FEES"))
	b.WriteString("\n")
	writeRow(&b, "Maker Fee Rate", m.MakerFeeRate.String())
	writeRow(&b, "Taker Fee Rate", m.TakerFeeRate.String())
	writeRow(&b, "Total Fee", number(m.TotalFee))
	writeRow(&b, "Total Maker Fee", number(m.TotalMakerFee))
	writeRow(&b, "Total Taker Fee", number(m.TotalTakerFee))
	writeRow(&b, "Fee / Gross Profit", percent(m.FeeRatio))

	b.WriteString(sectionStyle.Render("ORDERS"))
	b.WriteString("\n")
	writeRow(&b, "Total Orders", fmt.Sprintf("%d", m.TotalOrdersCount))
	writeRow(&b, "Total Order Amount", number(m.TotalOrderAmount))
	if m.TotalOrdersCount > 0 {
		writeRow(&b, "State: Maker", percent(m.MakerRatio))
		writeRow(&b, "State: Taker", percent(m.TakerRatio))
		writeRow(&b, "State: Cancelled (Not Filled)", percent(m.CancelledNotFilledRatio))
		writeRow(&b, "State: Cancelled (Post Only)", percent(m.CancelledPostOnlyRatio))
	} else {
		writeRow(&b, "State Ratios", "n/a")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		Padding(1, 2).
		Render(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func number(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.3f%%", v*100)
}

// percentOrNumber renders drawdown as a percentage in logarithmic mode and
// as an absolute quote amount otherwise.
func percentOrNumber(v float64, logarithmic bool) string {
	if logarithmic {
		return percent(v)
	}
	return number(v)
}
