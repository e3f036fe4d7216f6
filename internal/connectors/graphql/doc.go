// Package graphql provides the shared plumbing for cursor-paginated
// GraphQL-style APIs: an authorized HTTP client, a dual-strategy rate
// limiter, and a generic restartable paginator with bounded retry.
//
// Provider-specific connectors (internal/connectors/github,
// internal/connectors/ads) build their queries on top of this package
// and map raw responses into domain records.
package graphql
