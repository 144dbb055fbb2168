// Package models contains the GORM persistence models for the planning
// tables. Domain types stay free of ORM tags; each model converts to and from
// its domain type with ToDomain and FromDomain.
//
// The append-only records (inventory transactions, batch activity log and
// outbox entries) are mapped directly from their domain types.
package models
