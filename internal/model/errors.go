package model

import "errors"

// ErrNotFound is returned by the entity store when a referenced entity is
// absent. Services wrap it with entity context before surfacing it.
var ErrNotFound = errors.New("entity not found")
