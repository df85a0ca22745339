package handlers

import (
	"StayChat/module/chat/store"
	"StayChat/service/gateway"
)

// Context carries the collaborators every handler needs. Persistence is
// only reachable through the scope factory: handlers open a scope per
// unit of work and never hold repos.
type Context struct {
	Delivery gateway.Delivery
	Scopes   store.Factory
	Roster   gateway.Roster
}
