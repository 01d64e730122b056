package db

// RunMigrations creates or updates the catalog and session tables.
func RunMigrations(db *DB) error {
	return db.AutoMigrate(&Location{}, &Book{}, &TransactionLog{}, &RevokedToken{})
}
