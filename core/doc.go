// Package core contains the canonical webhook domain model, contracts, and
// orchestration logic. Lower-level adapters must depend on this package; core
// must not depend on store-specific or transport-specific adapters.
package core
