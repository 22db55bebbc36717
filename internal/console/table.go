package console

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/listing"
	"github.com/goliatone/go-leadconsole/pkg/resources"
)

const placeholderCell = "..."

// renderTable prints one page of res. While loading it prints placeholder
// rows instead of the previous items.
func (c *Console) renderTable(res resources.Resource, snap listing.Snapshot) {
	q := snap.Query
	header := fmt.Sprintf("%s - page %d of %d", res.Title, q.Page, snap.TotalPages)
	if q.Search != "" {
		header += fmt.Sprintf(" - search %q", q.Search)
	}
	if res.FilterKey != "" {
		if value := q.Filter(res.FilterKey); value != "" && value != client.FilterAll {
			header += fmt.Sprintf(" - %s: %s", res.FilterKey, value)
		}
	}
	if snap.Loading {
		header += " - loading"
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, header)

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	headers := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		headers[i] = col.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	switch {
	case snap.Loading:
		cells := make([]string, len(res.Columns))
		for i := range cells {
			cells[i] = placeholderCell
		}
		for i := 0; i < snap.Placeholders; i++ {
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	case len(snap.Items) == 0:
		fmt.Fprintf(tw, "No %s found\n", strings.ToLower(res.Title))
	default:
		for _, item := range snap.Items {
			cells := make([]string, len(res.Columns))
			for i, col := range res.Columns {
				cells[i] = c.clean(col.Render(item))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	_ = tw.Flush()
}

// renderRecord prints the labelled details of record.
func (c *Console) renderRecord(res resources.Resource, record client.Record) {
	fmt.Fprintln(c.out)
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	if label := c.clean(recordLabel(res, record)); label != "" {
		fmt.Fprintf(tw, "%s\t%s\n", res.Singular, label)
	}
	for _, d := range res.Details {
		fmt.Fprintf(tw, "%s\t%s\n", d.Label, c.clean(resources.Display(record[d.Field])))
	}
	_ = tw.Flush()
}
