// Package driven defines the driven (outbound) ports of the pipeline:
// the source connectors it pulls from, the cache store it persists to,
// and the clock it sleeps on. Adapters and connectors implement these;
// core services depend only on the interfaces.
package driven
