package model

// Severity categorizes a signal.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityCaution     Severity = "caution"
	SeverityOpportunity Severity = "opportunity"
)

// Rule identifies the signal rule that fired.
type Rule string

const (
	RuleOverbought   Rule = "RSI_OVERBOUGHT"
	RuleOversold     Rule = "RSI_OVERSOLD"
	RuleBullishCross Rule = "MACD_BULLISH_CROSS"
	RuleBearishCross Rule = "MACD_BEARISH_CROSS"
	RuleUpperBand    Rule = "BB_UPPER"
	RuleLowerBand    Rule = "BB_LOWER"
)

// Signal is the output of the signal generator. Signals are recomputed on
// every evaluation and never persisted.
type Signal struct {
	Severity        Severity `json:"severity"`
	Rule            Rule     `json:"rule"`
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	TriggeringValue float64  `json:"triggering_value"`
}
