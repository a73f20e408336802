package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried by service tokens
const (
	ServiceRoleApp   = "app"
	ServiceRoleAdmin = "admin"
)

// ServiceClaims identify the calling application on the HTTP API.
type ServiceClaims struct {
	Service string `json:"service"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
