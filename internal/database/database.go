// Package database is the read-only SQL backend for dataset sources.
//
// Datasets published as tables are fetched with a single SELECT built by
// SelectBuilder, scanned with ScanRows and handed to the decoder. Drivers live
// in the postgres and mysql subpackages; callers depend only on DB.
package database

// Dialect returns the placeholder and quoting dialect for the driver.
func (d Driver) Dialect() Dialect {
	if d == DriverMySQL {
		return DialectMySQL
	}
	return DialectPostgres
}
