package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID     string
	Created   time.Time
	Symbol    string
	Timeframe string
	Dataset   string
	Strategy  string
	Config    []byte // YAML of the effective config

	RiskPct float64 // 0.01 (1%)

	Start time.Time
	End   time.Time

	// Results
	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	// Derived
	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
	Sharpe       float64

	OrgPath     string
	Notes       []string
	NextActions []string
}

// Finalize fills NetPL and ReturnPct from the balances.
func (v *BacktestRun) Finalize() {
	v.NetPL = v.EndBalance - v.StartBalance
	if v.StartBalance != 0 {
		v.ReturnPct = v.NetPL / v.StartBalance * 100.0
	}
	if v.Created.IsZero() {
		v.Created = time.Now().UTC()
	}
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run, followed by its trades, as an Org-mode report.
func (v *BacktestRun) Org(trades []TradeRecord) (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, v); err != nil {
		return "", fmt.Errorf("render backtest %s: %w", v.RunID, err)
	}
	if len(trades) > 0 {
		buf.WriteString("\n** Trades\n")
		buf.WriteString(FormatTradesOrg(trades))
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// WriteBacktestOrg writes the report to OrgPath.
func (v *BacktestRun) WriteBacktestOrg(trades []TradeRecord) error {
	if v.OrgPath == "" {
		return fmt.Errorf("backtest %s: no org path", v.RunID)
	}
	s, err := v.Org(trades)
	if err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Symbol}} {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:TIMEFRAME:   {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{printf "%.2f" .ProfitFactor}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Parameters
| Parameter        | Value |
|------------------+-------|
| Risk per Trade % | {{printf "%.2f" (mul100 .RiskPct)}} |
{{- if .Config}}

#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end}}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{printf "%.2f" .ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
