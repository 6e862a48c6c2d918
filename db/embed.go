// Package db provides the embedded schema and seed catalog.
package db

import _ "embed"

// Schema holds the DDL for users, carts, items and orders. Every statement is
// idempotent so it can run on each start.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedItems is the starter catalog as a JSON array of {name, price, description}.
//
//go:embed seed/items.json
var SeedItems []byte
