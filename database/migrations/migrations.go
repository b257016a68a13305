// Package migrations holds the storefront schema. Each file registers its
// migrations from init(); cmd/boutique imports the package for its side
// effects so migrate, migrate:rollback and migrate:status see them all.
package migrations
