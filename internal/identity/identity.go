package identity

import (
	"errors"
)

// Role is the principal's role within its school (tenant).
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleCashier    Role = "cashier"
	RoleAuditor    Role = "auditor"
)

// Capability is a single action a role may or may not perform on the ledger.
type Capability int

const (
	CapCreatePayment Capability = iota
	CapEditOwnPending
	CapEditAnyPending
	CapPostPayment
	CapVoidPayment
	CapReassignCashier
	CapReconcile
	CapRead
)

var ErrUnknownRole = errors.New("unknown role")

// capabilities is the single source of truth for role gating. One
// deterministic table lookup, no fallback chains.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapCreatePayment:   true,
		CapEditOwnPending:  true,
		CapEditAnyPending:  true,
		CapPostPayment:     true,
		CapVoidPayment:     true,
		CapReassignCashier: true,
		CapReconcile:       true,
		CapRead:            true,
	},
	RoleCashier: {
		CapCreatePayment:  true,
		CapEditOwnPending: true,
		CapPostPayment:    true,
		CapReconcile:      true,
		CapRead:           true,
	},
	RoleAccountant: {
		CapRead: true,
	},
	RoleAuditor: {
		CapRead: true,
	},
}

// Can reports whether the role holds the capability. Unknown roles hold
// nothing.
func (r Role) Can(c Capability) bool {
	caps, ok := capabilities[r]
	if !ok {
		return false
	}
	return caps[c]
}

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

// Identity is the resolved acting principal carried through every ledger
// operation. TenantID scopes all data access; DisplayName is the value
// written to cashier_name and voided_by attributions.
type Identity struct {
	UserID      int64
	TenantID    int64
	Role        Role
	DisplayName string
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}
