package services

const (
	RoleTrainer = "trainer"
	RoleMember  = "member"
)

// Actor is the caller identity, supplied by the transport on every call.
type Actor struct {
	ID    int64
	Role  string
	Name  string
	Email string
}

func (a Actor) IsTrainer() bool {
	return a.Role == RoleTrainer && a.ID > 0
}

func (a Actor) IsMember() bool {
	return a.Role == RoleMember && a.ID > 0
}
