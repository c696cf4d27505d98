package flatrate

import (
	"fmt"
	"strings"
)

const (
	importTable = "i_flatrate_term"
	targetTable = "c_flatrate_term"
)

// lookup resolves one foreign key of the staging table by matching a
// natural key against a master data table of the same client.
type lookup struct {
	Label        string // for logs: "C_BPartner_ID"
	TargetColumn string // staging column receiving the ID
	Table        string // master data table
	IDColumn     string
	MatchColumn  string // natural key column in Table
	SourceColumn string // natural key column in the staging table
}

var (
	bpartnerLookup = lookup{
		Label:        "C_BPartner_ID",
		TargetColumn: "c_bpartner_id",
		Table:        "c_bpartner",
		IDColumn:     "c_bpartner_id",
		MatchColumn:  "value",
		SourceColumn: "bpartner_value",
	}
	conditionsLookup = lookup{
		Label:        "C_Flatrate_Conditions_ID",
		TargetColumn: "c_flatrate_conditions_id",
		Table:        "c_flatrate_conditions",
		IDColumn:     "c_flatrate_conditions_id",
		MatchColumn:  "name",
		SourceColumn: "c_flatrate_conditions_value",
	}
	productByValueLookup = lookup{
		Label:        "M_Product_ID (by Value)",
		TargetColumn: "m_product_id",
		Table:        "m_product",
		IDColumn:     "m_product_id",
		MatchColumn:  "value",
		SourceColumn: "product_value",
	}
	productByNameLookup = lookup{
		Label:        "M_Product_ID (by Name)",
		TargetColumn: "m_product_id",
		Table:        "m_product",
		IDColumn:     "m_product_id",
		MatchColumn:  "name",
		SourceColumn: "product_value",
	}
)

// validationStep resolves one or more lookups, then flags the rows whose
// target column is still NULL.
type validationStep struct {
	Lookups      []lookup
	ErrorMessage string
	ErrorColumn  string
}

var validationSteps = []validationStep{
	{
		Lookups:      []lookup{bpartnerLookup},
		ErrorMessage: "BPartner not found",
		ErrorColumn:  "c_bpartner_id",
	},
	{
		Lookups:      []lookup{conditionsLookup},
		ErrorMessage: "Flatrate conditions not found",
		ErrorColumn:  "c_flatrate_conditions_id",
	},
	{
		Lookups:      []lookup{productByValueLookup, productByNameLookup},
		ErrorMessage: "Product not found",
		ErrorColumn:  "m_product_id",
	},
}

// whereNotImported restricts statements to the run's client and to rows
// not imported yet. The client ID is always bound to $1.
func whereNotImported(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return fmt.Sprintf("%si_isimported<>'%s' AND %sad_client_id=$1", prefix, StatusImported, prefix)
}

// resolveSQL builds the UPDATE that fills l.TargetColumn with the lowest
// matching master data ID. Rows that already have an ID are left alone.
func resolveSQL(l lookup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s i", importTable)
	fmt.Fprintf(&b, "\n SET %s=(SELECT MIN(m.%s) FROM %s m WHERE m.%s=i.%s AND m.ad_client_id=i.ad_client_id)",
		l.TargetColumn, l.IDColumn, l.Table, l.MatchColumn, l.SourceColumn)
	fmt.Fprintf(&b, "\n WHERE %s", whereNotImported("i"))
	fmt.Fprintf(&b, "\n AND i.%s IS NULL", l.TargetColumn)
	return b.String()
}

// markErrorSQL builds the UPDATE that flags rows matching condition as
// failed. The status is bound to $2 and the message to $3; messages of
// several failed checks accumulate.
func markErrorSQL(condition string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s", importTable)
	b.WriteString("\n SET i_isimported=$2, i_errormsg=COALESCE(i_errormsg,'')||$3")
	fmt.Fprintf(&b, "\n WHERE %s", condition)
	fmt.Fprintf(&b, "\n AND %s", whereNotImported(""))
	return b.String()
}

// errorMessage formats a message for accumulation in i_errormsg.
func errorMessage(msg string) string {
	return msg + "; "
}

var (
	deleteImportedSQL = fmt.Sprintf(
		"DELETE FROM %s WHERE i_isimported='%s' AND ad_client_id=$1",
		importTable, StatusImported)

	resetSQL = fmt.Sprintf(
		"UPDATE %s SET i_isimported='%s', i_errormsg=NULL, processed=false WHERE %s",
		importTable, StatusPending, whereNotImported(""))

	countFailedSQL = fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE i_isimported='%s' AND ad_client_id=$1",
		importTable, StatusFailed)

	pendingSQL = fmt.Sprintf(`SELECT i.i_flatrate_term_id, i.c_bpartner_id, i.c_flatrate_conditions_id,
       i.m_product_id, i.start_date, i.end_date, fc.term_duration_months
FROM %s i
JOIN c_flatrate_conditions fc ON fc.c_flatrate_conditions_id = i.c_flatrate_conditions_id
WHERE i.i_isimported='%s' AND i.ad_client_id=$1
ORDER BY i.i_flatrate_term_id`, importTable, StatusPending)

	insertTermSQL = fmt.Sprintf(`INSERT INTO %s
    (ad_client_id, bill_bpartner_id, c_flatrate_conditions_id, m_product_id,
     start_date, end_date, doc_status, processed, import_run_id)
VALUES ($1, $2, $3, $4, $5, $6, '%s', false, $7)
RETURNING c_flatrate_term_id`, targetTable, DocStatusDrafted)

	completeTermSQL = fmt.Sprintf(
		"UPDATE %s SET doc_status='%s', processed=true WHERE c_flatrate_term_id=$1",
		targetTable, DocStatusCompleted)

	linkImportedSQL = fmt.Sprintf(
		"UPDATE %s SET c_flatrate_term_id=$2, i_isimported='%s', i_errormsg=NULL, processed=true, import_run_id=$3 WHERE i_flatrate_term_id=$1",
		importTable, StatusImported)

	markRowFailedSQL = fmt.Sprintf(
		"UPDATE %s SET i_isimported='%s', i_errormsg=COALESCE(i_errormsg,'')||$2, import_run_id=$3 WHERE i_flatrate_term_id=$1",
		importTable, StatusFailed)
)
