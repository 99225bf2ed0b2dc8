package notifier

import (
	"fmt"
	"html"
	"strings"

	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"

	"github.com/guregu/null/v5"
)

func value(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

func actionIcon(a model.SignalAction) string {
	switch a {
	case model.ActionBuy:
		return "🟢"
	case model.ActionSell:
		return "🔴"
	}
	return "⚪"
}

// FormatKDJReport formats a weekly KDJ snapshot and its signal.
func FormatKDJReport(snap model.KDJSnapshot, sig model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> weekly KDJ | %s\n\n", html.EscapeString(snap.Code), snap.Date))
	b.WriteString(fmt.Sprintf("K: %s\nD: %s\nJ: %s\n\n", value(snap.K), value(snap.D), value(snap.J)))
	b.WriteString(fmt.Sprintf("%s <b>%s</b>: %s", actionIcon(sig.Action), sig.Action, html.EscapeString(sig.Reason)))
	return b.String()
}

// FormatSignalAlert formats an actionable signal from the scheduled run.
func FormatSignalAlert(sig model.Signal) string {
	return fmt.Sprintf("%s <b>%s %s</b> | week %s\nJ = %s\n%s",
		actionIcon(sig.Action), sig.Action, html.EscapeString(sig.Code), sig.Date, value(sig.J), html.EscapeString(sig.Reason))
}

// FormatError formats a failed lookup for a chat reply.
func FormatError(code string, err error) string {
	return fmt.Sprintf("❌ %s: %s", html.EscapeString(code), html.EscapeString(err.Error()))
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return strings.Join([]string{
		"<b>Commands</b>",
		"/kdj &lt;code&gt; - latest weekly KDJ and signal, e.g. /kdj sh.600000",
		"/recent &lt;code&gt; - last recorded snapshots",
		"/help - this message",
	}, "\n")
}

// FormatRecent lists recorded snapshots, newest first.
func FormatRecent(code string, recs []recorder.KDJRecord) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No recorded snapshots for %s", html.EscapeString(code))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>%s</b> recent weekly KDJ\n", html.EscapeString(code)))
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("%s  K %s  D %s  J %s  (%s)\n", r.Date, value(r.K), value(r.D), value(r.J), strings.ToLower(string(r.Trigger))))
	}
	return strings.TrimRight(b.String(), "\n")
}
