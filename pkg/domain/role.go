package domain

// Role identifies the kind of actor driving a mutation. The transition table
// is keyed by role, so every core call must carry one.
type Role string

const (
	// RoleAdmin is the event organizer with full authority.
	RoleAdmin Role = "admin"
	// RoleStaff is check-in desk staff: may admit, check out, and substitute.
	RoleStaff Role = "staff"
	// RolePromoter is a delegated supplier; its mutations go through the
	// approval gate and never write canonical fields directly.
	RolePromoter Role = "promoter"
	// RoleCheckpoint is an unattended scanning device.
	RoleCheckpoint Role = "checkpoint"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RolePromoter, RoleCheckpoint:
		return true
	}
	return false
}
