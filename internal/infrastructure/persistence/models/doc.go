// Package models contains the GORM persistence models. Domain types carry no
// ORM tags; each model converts to and from its domain counterpart.
//
//   - base.go: shared id, timestamp and version columns
//   - order.go: orders and order_items
//   - catalog.go: products
//   - inventory.go: warehouses and warehouse_stocks
//   - partner.go: company_requisites
package models
