// Package registry holds the per-node variable mirror: descriptor tables,
// flat value memory and node lifecycle state. It carries no locks of its
// own; all mutation happens on the connection run loop, which is the
// single writer.
package registry
