package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionWalletRead       = "wallet:read"
	PermissionWalletWrite      = "wallet:write"
	PermissionSettlementRead   = "settlement:read"
	PermissionSettlementDecide = "settlement:decide"
	PermissionGamesWrite       = "games:write"
)

// Token types
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type AccountClaims struct {
	jwt.RegisteredClaims
	AccountID   string   `json:"account_id"`
	CardNumber  string   `json:"card_number"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	TokenType   string   `json:"token_type"`
}

// HasPermission checks if the claims include a specific permission
func (c *AccountClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionSettlementRead,
			PermissionSettlementDecide,
			PermissionGamesWrite,
		}
	case RoleUser:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionSettlementRead,
			PermissionGamesWrite,
		}
	default:
		return []string{}
	}
}
