package services

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter is the single source of truth for locale-fixed number and date
// formatting. The recap JSON preview and the PDF must render amounts through
// the same Formatter; a mismatch between preview and document is a
// correctness bug.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.French)}
}

// Money renders an amount as French currency, e.g. "1 431,00 €".
// CLDR narrow no-break separators are normalized to plain spaces so the
// output survives cp1252 PDF encoding unchanged.
func (f *Formatter) Money(v float64) string {
	s := f.printer.Sprintf("%.2f", v)
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return s + " €"
}

// Km renders a distance with one decimal, e.g. "80,0 km".
func (f *Formatter) Km(v float64) string {
	s := f.printer.Sprintf("%.1f", v)
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return s + " km"
}

// Percent renders a rate, e.g. "20 %".
func (f *Formatter) Percent(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d %%", int(v))
	}
	s := f.printer.Sprintf("%.2f", v)
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return s + " %"
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var frenchDays = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

// LongDate renders a long-form French date, e.g. "samedi 14 juin 2026".
func (f *Formatter) LongDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d",
		frenchDays[t.Weekday()], t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// ShortDate renders a numeric date, e.g. "14/06/2026".
func (f *Formatter) ShortDate(t time.Time) string {
	return t.Format("02/01/2006")
}
