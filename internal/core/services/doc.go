// Package services contains the core pipeline logic: the merge engine
// that reconciles fetched records with cached history, the derived
// statistics queries, and the orchestrator that drives connectors and
// persistence across the configured repository and publication set.
package services
