// Package integration contains the order-aggregation bounded context.
// It describes how orders observed on external marketplaces (Veeqo, Trendyol,
// Shippo) are captured as canonical Order records owned by a user.
//
// Key concepts:
//   - MarketplaceCode: identifies an upstream order source
//   - Credentials: per-user, per-marketplace API key bundle (read-only here)
//   - RawOrder: one loosely-typed upstream order payload
//   - NormalizedOrder: canonical Order+Items shape produced by a normalizer
//   - Order / OrderItem: persisted canonical record, unique per (user, marketplace, key)
//   - OrderShipping: 1:1 normalized delivery projection of an Order
//   - ShipperProfile: per-user sender defaults
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
