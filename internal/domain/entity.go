package domain

// Entity is a server-owned record. The console never assigns identifiers.
type Entity interface {
	EntityID() int
}

// State is the backend-controlled lifecycle of an entity.
type State string

const (
	StateActive       State = "active"
	StateSoftDeleted  State = "soft_deleted"
	StateForceDeleted State = "force_deleted"
)

// IDs returns the identifiers of items in order.
func IDs[T Entity](items []T) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.EntityID())
	}
	return out
}
