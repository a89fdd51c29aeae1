// Package pipeline runs one hook generation request end to end.
//
// A request moves through a fixed sequence:
//
//	validate -> quota check -> [memo lookup] -> prompt -> provider ->
//	normalize -> [memo save] -> debit -> result
//
// The quota policy and memo store are injected, so ungated, balance-gated,
// and memoized deployments are configurations of the same Pipeline.
// Normalization is a pure function exposed as Normalize so it can be tested
// and reused on stored hook sets.
package pipeline
