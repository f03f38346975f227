package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key is unset. Postgres rows
// created outside GORM still get ids from the migration-level defaults.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
