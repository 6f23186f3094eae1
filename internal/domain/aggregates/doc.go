// Package aggregates declares the joint purchase write contract, its inputs, and the
// coded errors every write returns. Implementations live in internal/data/aggregates.
package aggregates
