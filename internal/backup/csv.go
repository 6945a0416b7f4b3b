package backup

import (
	"fmt"
	"strings"

	"kanakku/internal/core"
)

// csvHeader is the fixed header of the plain export projection.
const csvHeader = "Date,Type,Category,Description,Amount,Method"

// ExportCSV renders the one-way unencrypted projection: header, one row per
// expense, then one row per income. Income rows reuse the Method column for
// the recurrence. Only the free-text column is quoted.
func ExportCSV(expenses []core.Expense, incomes []core.Income) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, e := range expenses {
		fmt.Fprintf(&b, "%s,Expense,%s,\"%s\",%s,%s\n",
			e.Date, e.Category, e.Description, e.Amount.Decimal(), e.PaymentMethod)
	}
	for _, i := range incomes {
		fmt.Fprintf(&b, "%s,Income,%s,\"%s\",%s,%s\n",
			i.Date, i.Category, i.Source, i.Amount.Decimal(), i.Recurrence)
	}
	return b.String()
}
