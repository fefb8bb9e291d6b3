package association

// Kind is the shape of a remote association.
type Kind int

const (
	// RemoteHasOne is a single remote object holding a key to the owner.
	RemoteHasOne Kind = iota + 1
	// RemoteHasMany is a list of remote objects holding a key to the owner.
	RemoteHasMany
	// RemoteBelongsTo is a single remote object referenced by a key on the owner.
	RemoteBelongsTo
)

func (k Kind) String() string {
	switch k {
	case RemoteHasOne:
		return "remote_has_one"
	case RemoteHasMany:
		return "remote_has_many"
	case RemoteBelongsTo:
		return "remote_belongs_to"
	}
	return "unknown"
}

// OwnerHoldsKey reports whether the join key lives on the owner record.
func (k Kind) OwnerHoldsKey() bool {
	return k == RemoteBelongsTo
}

func (k Kind) IsList() bool {
	return k == RemoteHasMany
}
