package models

import "github.com/google/uuid"

// assignID fills a nil primary key before insert. Postgres has column
// defaults too, but sqlite (dev/tests) does not.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
