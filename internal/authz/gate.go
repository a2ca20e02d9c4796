package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPermissionDenied permission tidak ada -> hard reject, bukan silent no-op.
var ErrPermissionDenied = errors.New("permission denied")

const (
	PermApproveOrders = "approve_orders"
	PermPrepareOrders = "prepare_orders"
	PermManageOrders  = "manage_orders"
)

// Gate satu titik cek kapabilitas per operasi engine; jangan sebar cek
// membership string di call site.
type Gate interface {
	HasPermission(ctx context.Context, tenantID, userID, perm string) (bool, error)
	HasAnyPermission(ctx context.Context, tenantID, userID string, perms []string) (bool, error)
}

// PgGate lookup role -> permission di Postgres.
type PgGate struct{ DB *pgxpool.Pool }

func (g *PgGate) HasPermission(ctx context.Context, tenantID, userID, perm string) (bool, error) {
	return g.HasAnyPermission(ctx, tenantID, userID, []string{perm})
}

func (g *PgGate) HasAnyPermission(ctx context.Context, tenantID, userID string, perms []string) (bool, error) {
	var n int
	err := g.DB.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN role_permissions rp ON rp.tenant_id = ur.tenant_id AND rp.role_id = ur.role_id
		WHERE ur.tenant_id=$1 AND ur.user_id=$2 AND rp.permission = ANY($3)`,
		tenantID, userID, perms).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Static gate berbasis daftar izin per user; dipakai di test dan mode dev.
type Static struct {
	Perms map[string][]string // user_id -> permissions
}

func (s *Static) HasPermission(ctx context.Context, tenantID, userID, perm string) (bool, error) {
	return s.HasAnyPermission(ctx, tenantID, userID, []string{perm})
}

func (s *Static) HasAnyPermission(ctx context.Context, tenantID, userID string, perms []string) (bool, error) {
	for _, have := range s.Perms[userID] {
		for _, want := range perms {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}
