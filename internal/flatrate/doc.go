// Package flatrate imports flat-rate contract terms through a staging table.
//
// Import files are first loaded into i_flatrate_term with [Stage]. A
// [Process] run then resolves the natural keys in each staged row to
// production IDs, flags rows whose business partner, conditions or product
// cannot be found, and turns every remaining row into a completed
// c_flatrate_term contract:
//
//	i_flatrate_term                      c_flatrate_term
//	  bpartner_value        ──lookup──▶    bill_bpartner_id
//	  c_flatrate_conditions_value ──▶      c_flatrate_conditions_id
//	  product_value (value, then name) ▶   m_product_id
//	  start_date / end_date                start_date / end_date
//
// Staging rows carry an import status in i_isimported:
//
//	N - pending, picked up by the next run
//	Y - imported; c_flatrate_term_id points at the contract
//	E - failed; i_errormsg lists the reasons, separated by "; "
//
// Rows marked E are reset to N at the start of every run, so fixing the
// master data and running again retries them.
package flatrate
