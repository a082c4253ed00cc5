package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	identitiesSheet = "Identities"
	commitsSheet    = "Commits"
)

var identityHeader = []any{
	"ID", "Name", "Email", "Names", "Emails",
	"Commits", "First Seen", "Last Seen", "Transitive",
}

var commitsHeader = []any{
	"ID", "Count", "First Seen", "Last Seen",
	"Merges", "Branches", "Active Days",
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// Writes the report as a spreadsheet with one sheet of identities and one of
// commit stats.
func WriteXLSX(path string, r *Report) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error writing spreadsheet %s: %w", path, err)
		}
	}()

	f := excelize.NewFile()
	defer f.Close()

	err = f.SetSheetName("Sheet1", identitiesSheet)
	if err != nil {
		return err
	}

	rows := [][]any{identityHeader}
	for _, id := range r.Identities {
		rows = append(rows, []any{
			id.ID,
			id.Name,
			id.Email,
			strings.Join(id.Names, ", "),
			strings.Join(id.Emails, ", "),
			id.CommitCount,
			formatUnix(id.FirstSeen),
			formatUnix(id.LastSeen),
			id.Transitive,
		})
	}

	err = writeRows(f, identitiesSheet, rows)
	if err != nil {
		return err
	}

	_, err = f.NewSheet(commitsSheet)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(r.Commits))
	for id := range r.Commits {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows = [][]any{commitsHeader}
	for _, id := range ids {
		stats := r.Commits[id]
		rows = append(rows, []any{
			id,
			stats.Count,
			formatUnix(stats.FirstSeen),
			formatUnix(stats.LastSeen),
			stats.Merges,
			stats.Branches,
			stats.ActiveDays,
		})
	}

	err = writeRows(f, commitsSheet, rows)
	if err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		err = f.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return err
		}
	}

	return nil
}
