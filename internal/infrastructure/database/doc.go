// Package database provides SQLite connectivity for the Govee BLE
// controller.
//
// The database holds the light state history journal and whatever future
// tables migrations add. This package manages:
//   - Connection setup with WAL mode and busy timeout
//   - Schema migrations embedded in the binary
//   - Lifecycle and health checks
//
// Security considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only);
//     the journal reveals occupancy patterns
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration strategy:
//
// Migrations are additive-only so old binaries can keep running against a
// newer schema:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns
//   - Each migration file has both .up.sql and .down.sql
package database
