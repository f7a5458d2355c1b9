package archive

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintTable renders candidates as an indexed table
func PrintTable(w io.Writer, candidates []Candidate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Archive", "Bundle ID", "Version", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, c := range candidates {
		bundleID, version, created := "-", "-", "-"
		if c.Info != nil {
			if id := c.Info.ApplicationProperties.BundleIdentifier; id != "" {
				bundleID = id
			}
			if v := c.Info.Version(); v != "" {
				version = v
			}
			if !c.Info.CreationDate.IsZero() {
				created = c.Info.CreationDate.Local().Format("2006-01-02 15:04")
			}
		}
		table.Append([]string{fmt.Sprintf("%d", i+1), c.Name(), bundleID, version, created})
	}

	table.Render()
}
