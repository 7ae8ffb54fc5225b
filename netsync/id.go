package netsync

import "github.com/google/uuid"

// ObjectID names a replicated entity on the wire.
type ObjectID = uuid.UUID

func NewObjectID() ObjectID {
	return uuid.New()
}
