// Package driving defines the driving (inbound) ports: the operations
// the CLI invokes on the core.
package driving
