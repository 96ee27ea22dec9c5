// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: shared primary key and timestamp columns
// - integration.go: orders, order_items, order_shippings
// - settings.go: marketplace_credentials, shipper_profiles (written by the settings service)
package models
