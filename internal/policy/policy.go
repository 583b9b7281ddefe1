// Package policy is the single source of truth for authorization. Every
// state-mutating operation asks the table for a decision keyed by
// (operation, actor role, ownership relation) instead of scattering role
// checks across call sites.
package policy

import "loadboard/internal/models"

// Operation names the core actions an actor can attempt.
type Operation string

const (
	OpPostLoad     Operation = "post_load"
	OpCancelLoad   Operation = "cancel_load"
	OpAdvanceLoad  Operation = "advance_load" // assigned → picked_up → in_transit → delivered
	OpCompleteLoad Operation = "complete_load"
	OpViewLoad     Operation = "view_load"
	OpSubmitQuote  Operation = "submit_quote"
	OpDecideQuote  Operation = "decide_quote" // accept or reject
	OpWithdrawQuote Operation = "withdraw_quote"
	OpFinalPayment Operation = "final_payment"
	OpExportLoads  Operation = "export_loads"
)

// Relation is the actor's relationship to the resource.
type Relation string

const (
	RelAny      Relation = "any"      // no ownership required
	RelOwner    Relation = "owner"    // actor posted the load / owns the quote
	RelAssigned Relation = "assigned" // actor is the assigned driver
)

// rules maps operation → role → relations under which the role is allowed.
// Roles absent from an operation's row are denied outright.
var rules = map[Operation]map[string][]Relation{
	OpPostLoad: {
		models.RoleCustomer:   {RelAny},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpCancelLoad: {
		models.RoleCustomer:   {RelOwner},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpAdvanceLoad: {
		models.RoleDriver:     {RelAssigned},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpCompleteLoad: {
		models.RoleCustomer:   {RelOwner},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpViewLoad: {
		models.RoleCustomer:   {RelAny},
		models.RoleDriver:     {RelAny},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpSubmitQuote: {
		models.RoleDriver: {RelAny},
	},
	OpDecideQuote: {
		models.RoleCustomer:   {RelOwner},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpWithdrawQuote: {
		models.RoleDriver: {RelOwner},
	},
	OpFinalPayment: {
		models.RoleCustomer:   {RelOwner},
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
	OpExportLoads: {
		models.RoleAdmin:      {RelAny},
		models.RoleSuperAdmin: {RelAny},
	},
}

// Allow reports whether the actor may perform op given its relation to the
// resource.
func Allow(op Operation, actor models.Actor, rel Relation) bool {
	relations, ok := rules[op][actor.Role]
	if !ok {
		return false
	}
	for _, allowed := range relations {
		if allowed == RelAny || allowed == rel {
			return true
		}
	}
	return false
}

// LoadRelation derives the actor's relation to a load.
func LoadRelation(actor models.Actor, load *models.Load) Relation {
	if load.PostedBy == actor.UserID {
		return RelOwner
	}
	if load.AssignedTo != nil && *load.AssignedTo == actor.UserID {
		return RelAssigned
	}
	return RelAny
}

// QuoteRelation derives the actor's relation to a quote.
func QuoteRelation(actor models.Actor, quote *models.Quote) Relation {
	if quote.TransporterID == actor.UserID {
		return RelOwner
	}
	return RelAny
}
