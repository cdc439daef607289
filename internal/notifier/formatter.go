package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CoinSentinel/internal/model"
	"CoinSentinel/internal/report"
)

var severityIcon = map[model.Severity]string{
	model.SeverityInfo:        "ℹ️",
	model.SeverityCaution:     "⚠️",
	model.SeverityOpportunity: "🟢",
}

// FormatSignals builds the alert for the signals of one asset at price.
func FormatSignals(asset model.Asset, price float64, signals []model.Signal) Message {
	noun := "signals"
	if len(signals) == 1 {
		noun = "signal"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%s) at %s\n\n", asset.Name, asset.ID, formatPrice(price)))
	for _, s := range signals {
		b.WriteString(fmt.Sprintf("%s [%s] %s: %s\n", severityIcon[s.Severity], strings.ToUpper(string(s.Severity)), s.Title, s.Message))
	}
	b.WriteString(fmt.Sprintf("\n%s", time.Now().UTC().Format("2006-01-02 15:04 MST")))

	return Message{
		Subject: fmt.Sprintf("CoinSentinel: %d %s for %s", len(signals), noun, asset.Name),
		Body:    b.String(),
	}
}

// FormatReport renders a report as Telegram HTML.
func FormatReport(r *report.Report) string {
	var b strings.Builder
	name := html.EscapeString(r.Asset.Name)

	if r.Summary.Points == 0 {
		return fmt.Sprintf("📊 <b>%s</b>\n\nNo price history stored yet.", name)
	}

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", name, r.Summary.LastTimestamp.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Price: %s", formatPrice(r.Summary.LastPrice)))
	if r.Summary.ChangePct.Defined {
		b.WriteString(fmt.Sprintf(" (%+.2f%% 30d)", r.Summary.ChangePct.V))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("30d range: %s to %s\n\n", formatPrice(r.Summary.Low), formatPrice(r.Summary.High)))

	b.WriteString("📈 <b>Indicators:</b>\n")
	lines := []struct {
		label string
		kind  model.IndicatorKind
	}{
		{"RSI", model.KindRSI},
		{"MACD", model.KindMACD},
		{"Signal", model.KindMACDSignal},
		{"MA20", model.KindMA20},
		{"MA50", model.KindMA50},
		{"MA200", model.KindMA200},
		{"BB upper", model.KindBBUpper},
		{"BB lower", model.KindBBLower},
		{"%K", model.KindStochK},
		{"%D", model.KindStochD},
		{"Volatility", model.KindVolatility},
	}
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(l.label), formatValue(r.Latest[l.kind])))
	}

	if len(r.Signals) == 0 {
		b.WriteString("\nNo signals.")
		return b.String()
	}
	b.WriteString("\n🔔 <b>Signals:</b>\n")
	for _, s := range r.Signals {
		b.WriteString(fmt.Sprintf("  %s %s: %s\n", severityIcon[s.Severity], html.EscapeString(s.Title), html.EscapeString(s.Message)))
	}
	return b.String()
}

// FormatQuotes renders current quotes as Telegram HTML, one line per asset.
func FormatQuotes(quotes []model.Quote, names map[string]string) string {
	if len(quotes) == 0 {
		return "No quotes available."
	}
	var b strings.Builder
	b.WriteString("💰 <b>Current prices</b>\n\n")
	for _, q := range quotes {
		name := names[q.Asset]
		if name == "" {
			name = q.Asset
		}
		arrow := "▲"
		if q.Change24h < 0 {
			arrow = "▼"
		}
		b.WriteString(fmt.Sprintf("%s: %s %s %+.2f%%\n", html.EscapeString(name), formatPrice(q.Price), arrow, q.Change24h))
	}
	return b.String()
}

func formatValue(v model.Value) string {
	if !v.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.V)
}

// formatPrice keeps more decimals for sub-dollar assets.
func formatPrice(p float64) string {
	if p < 1 {
		return fmt.Sprintf("$%.4f", p)
	}
	return fmt.Sprintf("$%.2f", p)
}
