package service

import "github.com/Varun5711/clubhouse/internal/auth"

// Actor is the authenticated caller of an operation.
type Actor struct {
	MemberID string
	IsAdmin  bool
}

func ActorFromClaims(claims *auth.Claims) *Actor {
	if claims == nil {
		return nil
	}
	return &Actor{MemberID: claims.MemberID(), IsAdmin: claims.IsAdmin}
}

// CanAccess reports whether the actor may act on data owned by memberID.
func (a *Actor) CanAccess(memberID string) bool {
	if a == nil {
		return false
	}
	return a.IsAdmin || a.MemberID == memberID
}

func (a *Actor) admin() bool {
	return a != nil && a.IsAdmin
}
