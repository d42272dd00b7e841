package discord

// RefKind enumerates the rich objects that may appear as option values.
type RefKind int

const (
	RefUser RefKind = iota + 1
	RefMember
	RefChannel
	RefThread
	RefRole
)

// String returns the lower-case kind name.
func (k RefKind) String() string {
	switch k {
	case RefUser:
		return "user"
	case RefMember:
		return "member"
	case RefChannel:
		return "channel"
	case RefThread:
		return "thread"
	case RefRole:
		return "role"
	default:
		return "unknown"
	}
}

// Reference is a resolved user, member, channel, thread or role. It is
// reduced to its bare ID before it leaves the capture layer.
type Reference struct {
	Kind RefKind
	ID   uint64
	Name string
}

// UserRef builds a user reference.
func UserRef(id uint64, name string) Reference {
	return Reference{Kind: RefUser, ID: id, Name: name}
}

// ChannelRef builds a channel reference.
func ChannelRef(id uint64, name string) Reference {
	return Reference{Kind: RefChannel, ID: id, Name: name}
}

// RoleRef builds a role reference.
func RoleRef(id uint64, name string) Reference {
	return Reference{Kind: RefRole, ID: id, Name: name}
}
