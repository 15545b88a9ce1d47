// Package render holds the text bindings for the transaction list: the
// heterogeneous column headers and a tabwriter-based table.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/username/cancat/client/src/models"
)

// ColumnKind discriminates the header variants.
type ColumnKind int

const (
	// TextHeader is a plain string heading.
	TextHeader ColumnKind = iota
	// IconHeader is an icon marker identified by name.
	IconHeader
)

// Column is a tagged variant: either a text heading or an icon marker. The
// renderer evaluates both uniformly through Heading.
type Column struct {
	Kind ColumnKind
	Text string // set for TextHeader
	Icon string // icon id, set for IconHeader
}

// Text returns a plain-text column header.
func Text(s string) Column { return Column{Kind: TextHeader, Text: s} }

// Icon returns an icon column header.
func Icon(id string) Column { return Column{Kind: IconHeader, Icon: id} }

// Heading renders the header cell. Icon headers render as their bracketed
// icon id, the text surface's stand-in for an icon glyph.
func (c Column) Heading() string {
	if c.Kind == IconHeader {
		return "[" + c.Icon + "]"
	}
	return c.Text
}

// TransactionColumns is the transaction table's header row: text headings
// mixed with icon markers for the flag and hidden columns.
var TransactionColumns = []Column{
	Text("Date"),
	Text("Label"),
	Text("Amount"),
	Text("Tag"),
	Text("P/B"),
	Icon("flag"),
	Icon("hidden"),
	Text("M"),
	Text("Source"),
}

// WriteTransactions renders the page as a table. selected reports a row's
// checkbox state; it is ignored for shared views, which carry no selection
// or edit affordances. The trailing line is the "Showing X to Y of Z
// results" summary.
func WriteTransactions(w io.Writer, page models.Page, selected func(int64) bool, shared bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	headings := make([]string, 0, len(TransactionColumns)+2)
	if !shared {
		headings = append(headings, "Sel")
	}
	headings = append(headings, "ID")
	for _, col := range TransactionColumns {
		headings = append(headings, col.Heading())
	}
	fmt.Fprintln(tw, strings.Join(headings, "\t"))

	for _, tx := range page.Records {
		cells := make([]string, 0, len(headings))
		if !shared {
			mark := " "
			if selected != nil && selected(tx.ID) {
				mark = "x"
			}
			cells = append(cells, "["+mark+"]")
		}
		cells = append(cells,
			fmt.Sprintf("%d", tx.ID),
			tx.Date,
			labelCell(tx),
			fmt.Sprintf("$%.2f", tx.Amount),
			tagCell(tx),
			pandbCell(tx),
			boolMark(tx.Flag, "F"),
			boolMark(tx.Hidden, "H"),
			yesNo(tx.M),
			tx.Source,
		)
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	from, to := page.ShowingRange()
	fmt.Fprintf(w, "Showing %d to %d of %d results\n", from, to, page.TotalRecords)
}

// WriteRules renders the rule catalog.
func WriteRules(w io.Writer, rules []models.Rule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLabel\tNickname")
	for _, r := range rules {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Label, r.Nickname)
	}
	tw.Flush()
}

// labelCell shows the effective label; a customized row keeps its original
// label visible as provenance, the table's stand-in for the tooltip.
func labelCell(tx models.Transaction) string {
	if tx.Custom != nil {
		return fmt.Sprintf("%s (was: %s)", *tx.Custom, tx.Label)
	}
	return tx.Label
}

func tagCell(tx models.Transaction) string {
	if tx.Tag != nil {
		return tx.Tag.Name
	}
	return "None"
}

func pandbCell(tx models.Transaction) string {
	if tx.PandB {
		return "B"
	}
	return "P"
}

func boolMark(v bool, mark string) string {
	if v {
		return mark
	}
	return "-"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
