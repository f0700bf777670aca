// Package access decides who may see or change a resource. Anonymous
// requesters carry an empty requester ID.
package access

import "shelfmark/api/internal/notes"

// CanRead reports whether requesterID may read resource: public resources
// are readable by anyone, private ones only by their owner.
func CanRead(requesterID string, resource notes.Resource) bool {
	if resource.IsPublic {
		return true
	}
	return requesterID != "" && requesterID == resource.OwnerID
}

// CanWrite reports whether requesterID may mutate resource. Only the
// owner writes; anonymous requesters never pass, public or not.
func CanWrite(requesterID string, resource notes.Resource) bool {
	return requesterID != "" && requesterID == resource.OwnerID
}
