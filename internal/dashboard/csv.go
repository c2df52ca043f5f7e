package dashboard

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{
	"Name", "Email", "Phone", "Codeforces Handle",
	"Current Rating", "Max Rating", "Last Updated",
}

// ExportCSV writes students, in the given order, as CSV. A zero rating is
// written as N/A and a missing update time as Never.
func ExportCSV(w io.Writer, students []types.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, s := range students {
		row := []string{
			s.Name,
			s.Email,
			s.PhoneNumber,
			s.CodeforcesHandle,
			ratingCell(s.CurrentRating),
			ratingCell(s.MaxRating),
			updatedCell(s.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ratingCell(r int) string {
	if r == 0 {
		return "N/A"
	}
	return strconv.Itoa(r)
}

func updatedCell(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.UTC().Format(time.DateTime)
}
