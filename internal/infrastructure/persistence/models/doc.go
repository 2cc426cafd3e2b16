// Package models contains GORM persistence models for the ledger tables.
// Domain entities stay free of GORM tags; each model converts to and from its
// domain type with ToDomain/FromDomain.
//
// Tables:
// - invoices: Invoice aggregate root (line items embedded as JSONB)
// - payments: immutable payments against an invoice
// - audit_log: append-only action history keyed by lead
// - quotes: read model of quotes owned by the lead pipeline
package models
