package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/strategies"
	"github.com/rustyeddy/backtester/walkforward"
)

var printer = message.NewPrinter(language.English)

func money(x float64) string {
	if x < 0 {
		return "-$" + printer.Sprintf("%.2f", -x)
	}
	return "$" + printer.Sprintf("%.2f", x)
}

func pct(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func ratio(x float64) string {
	return fmt.Sprintf("%.2f", x)
}

func joinNames() string {
	return strings.Join(strategies.Names(), ", ")
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func renderReport(w io.Writer, res backtest.Result, rep analytics.Report) {
	t := newTable(w, "Metric", "Value")
	t.AppendBulk([][]string{
		{"Period", fmt.Sprintf("%s .. %s", res.Start.Format("2006-01-02 15:04"), res.End.Format("2006-01-02 15:04"))},
		{"Bars", printer.Sprintf("%d", res.Bars)},
		{"Initial capital", money(res.InitialCapital)},
		{"Final equity", money(res.Equity)},
		{"Cash", money(res.Cash)},
		{"Net P/L", money(rep.NetPnL)},
		{"Fees", money(rep.Fees)},
		{"Trades", fmt.Sprintf("%d (%d open)", rep.Trades, res.OpenPositions)},
		{"Win rate", pct(rep.WinRate)},
		{"Profit factor", ratio(rep.ProfitFactor)},
		{"Expectancy", money(rep.Expectancy)},
		{"Average R", ratio(rep.AverageR)},
		{"Max drawdown", pct(rep.MaxDrawdown)},
		{"Ulcer index", pct(rep.UlcerIndex)},
		{"Sharpe", ratio(rep.Sharpe)},
		{"Sortino", ratio(rep.Sortino)},
		{"CAGR", pct(rep.CAGR)},
		{"Calmar", ratio(rep.Calmar)},
		{"Max losing streak", fmt.Sprintf("%d", rep.MaxConsecutiveLosses)},
		{"Avg trade duration", rep.AvgTradeDuration.String()},
	})
	t.Render()
}

func renderWalkForward(w io.Writer, res walkforward.Result) {
	t := newTable(w, "#", "Train", "Test", "IS Sharpe", "OOS Sharpe", "IS CAGR", "OOS CAGR", "OOS Trades")
	for _, r := range res.Windows {
		row := []string{
			fmt.Sprintf("%d", r.Index),
			r.TrainStart.Format("2006-01-02") + " .. " + r.TrainEnd.Format("2006-01-02"),
			r.TestStart.Format("2006-01-02") + " .. " + r.TestEnd.Format("2006-01-02"),
		}
		if r.Err != nil {
			row = append(row, "error", r.Err.Error(), "", "", "")
		} else {
			row = append(row,
				ratio(r.Train.Sharpe), ratio(r.Test.Sharpe),
				pct(r.Train.CAGR), pct(r.Test.CAGR),
				fmt.Sprintf("%d", r.Test.Trades))
		}
		t.Append(row)
	}
	t.Render()

	a := res.Aggregate
	fmt.Fprintln(w)
	s := newTable(w, "Aggregate", "Value")
	s.AppendBulk([][]string{
		{"Windows", fmt.Sprintf("%d (%d failed)", a.Windows, a.Failed)},
		{"Avg IS Sharpe", ratio(a.AvgISSharpe)},
		{"Avg OOS Sharpe", ratio(a.AvgOOSSharpe)},
		{"Avg IS CAGR", pct(a.AvgISReturn)},
		{"Avg OOS CAGR", pct(a.AvgOOSReturn)},
		{"IS/OOS correlation", ratio(a.ISOOSCorr)},
		{"Consistency", a.Consistency},
	})
	s.Render()
}
