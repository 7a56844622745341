package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		can  []Capability
		cant []Capability
	}{
		{
			role: RoleAdmin,
			can: []Capability{
				CapCreatePayment, CapEditOwnPending, CapEditAnyPending,
				CapPostPayment, CapVoidPayment, CapReassignCashier,
				CapReconcile, CapRead,
			},
		},
		{
			role: RoleCashier,
			can:  []Capability{CapCreatePayment, CapEditOwnPending, CapPostPayment, CapReconcile, CapRead},
			cant: []Capability{CapEditAnyPending, CapVoidPayment, CapReassignCashier},
		},
		{
			role: RoleAccountant,
			can:  []Capability{CapRead},
			cant: []Capability{CapCreatePayment, CapEditOwnPending, CapVoidPayment, CapReconcile},
		},
		{
			role: RoleAuditor,
			can:  []Capability{CapRead},
			cant: []Capability{CapCreatePayment, CapEditOwnPending, CapVoidPayment, CapReconcile},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, c := range tt.can {
				assert.True(t, tt.role.Can(c), "capability %d", c)
			}
			for _, c := range tt.cant {
				assert.False(t, tt.role.Can(c), "capability %d", c)
			}
		})
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	r := Role("superuser")
	assert.False(t, r.Valid())
	assert.False(t, r.Can(CapRead))
}

func TestResolverRoundTrip(t *testing.T) {
	r := NewResolver("test-secret")

	id := Identity{UserID: 7, TenantID: 3, Role: RoleCashier, DisplayName: "John Doe"}
	token, err := r.Sign(id)
	require.NoError(t, err)

	got, err := r.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestResolverRejections(t *testing.T) {
	r := NewResolver("test-secret")
	good := Identity{UserID: 7, TenantID: 3, Role: RoleCashier, DisplayName: "John Doe"}

	t.Run("empty token", func(t *testing.T) {
		_, err := r.Resolve("")
		require.ErrorIs(t, err, ErrAuthenticationRequired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := r.Resolve("not.a.token")
		require.ErrorIs(t, err, ErrAuthenticationRequired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewResolver("other-secret").Sign(good)
		require.NoError(t, err)
		_, err = r.Resolve(token)
		require.ErrorIs(t, err, ErrAuthenticationRequired)
	})

	t.Run("unknown role", func(t *testing.T) {
		bad := good
		bad.Role = "superuser"
		token, err := r.Sign(bad)
		require.NoError(t, err)
		_, err = r.Resolve(token)
		require.ErrorIs(t, err, ErrAuthenticationRequired)
	})

	t.Run("missing tenant", func(t *testing.T) {
		bad := good
		bad.TenantID = 0
		token, err := r.Sign(bad)
		require.NoError(t, err)
		_, err = r.Resolve(token)
		require.ErrorIs(t, err, ErrAuthenticationRequired)
	})
}
