package core

// Role is the relationship a user holds over an account.
type Role string

const (
	RolePrimaryHolder       Role = "primary_holder"
	RoleJointHolder         Role = "joint_holder"
	RoleSecondaryHolder     Role = "secondary_holder"
	RoleAuthorizedSignatory Role = "authorized_signatory"
)

// Membership links a user to an account with a role. Every open account has
// exactly one primary holder, and that membership cannot be removed.
type Membership struct {
	AccountNumber int64
	UserID        int
	Role          Role
}

// NextRole decides the role for a holder being added to an account, given
// the roles already present. First holder becomes the primary holder. With
// one existing holder the new role follows the existing one: a primary
// holder takes a secondary, joint holders and signatories take more of the
// same. From two holders on, everyone added is an authorized signatory.
func NextRole(existing []Role) Role {
	switch len(existing) {
	case 0:
		return RolePrimaryHolder
	case 1:
		switch existing[0] {
		case RolePrimaryHolder:
			return RoleSecondaryHolder
		case RoleJointHolder:
			return RoleJointHolder
		case RoleAuthorizedSignatory:
			return RoleAuthorizedSignatory
		default:
			return RoleSecondaryHolder
		}
	default:
		return RoleAuthorizedSignatory
	}
}
