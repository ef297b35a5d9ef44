package rbac

// Role names. Keep these stable; they are part of auth/session contracts
// and the demo account table.
const (
	RoleVisitor   = "visitor"
	RoleKiosk     = "kiosk"
	RoleGatehouse = "gatehouse"
	RoleAdmin     = "admin"
	RoleReception = "reception"
	RoleHost      = "host"
	RoleSOS       = "sos" // emergency/evacuation console
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// CanOverrideExitGuard reports whether the role may check a visitor out
// without a prior gatehouse exit authorization. Front-line roles (kiosk,
// visitor) must go through the gatehouse validation step first.
func CanOverrideExitGuard(role string) bool {
	switch role {
	case RoleKiosk, RoleVisitor, "":
		return false
	default:
		return true
	}
}

// IsKnown reports whether role belongs to the closed role set.
func IsKnown(role string) bool {
	switch role {
	case RoleVisitor, RoleKiosk, RoleGatehouse, RoleAdmin, RoleReception, RoleHost, RoleSOS:
		return true
	default:
		return false
	}
}
