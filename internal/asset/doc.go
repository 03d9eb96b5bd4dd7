// Package asset defines the asset categories, requests, lookup indexes and
// per-unit resolution results shared by the resolver and the dispatcher.
package asset
