// Package identity resolves a verified subject and role from a request
// token. Verification itself is the platform's concern; the core only needs
// the resulting identity.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role discriminates the two user kinds. Every consumer switches on it
// exhaustively instead of duck-typing the user object.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Identity is a verified subject. PatientDataID links a patient user to
// their medical record; it is empty for doctors.
type Identity struct {
	Valid         bool
	SubjectID     string
	Role          Role
	PatientDataID string
}

// Resolver verifies bearer tokens into identities.
type Resolver struct {
	secret []byte
}

// NewResolver creates a resolver with the signing secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve verifies the token and extracts the subject, role, and patient
// record linkage. An invalid token yields Identity{Valid: false}, not an
// error the caller must branch on separately.
func (r *Resolver) Resolve(tokenString string) Identity {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}
	}

	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	role := Role(roleStr)
	if sub == "" || !role.Valid() {
		return Identity{}
	}

	id := Identity{
		Valid:     true,
		SubjectID: sub,
		Role:      role,
	}
	if role == RolePatient {
		id.PatientDataID, _ = claims["patient_data_id"].(string)
	}
	return id
}

// Issue signs a token for the identity. Only used by tests and local
// tooling; production tokens come from the auth provider.
func (r *Resolver) Issue(id Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":  id.SubjectID,
		"role": string(id.Role),
	}
	if id.PatientDataID != "" {
		claims["patient_data_id"] = id.PatientDataID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}
