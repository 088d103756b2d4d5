// Package game defines the Duskhollow data model: participants, roles,
// votes, night actions, chat messages, the phase cycle, and the pure
// rules that operate on them (vote tallies, night resolution, win
// evaluation, role assignment).
//
// Everything in this package is immutable value types and pure functions.
// Mutation of live game state belongs to the state package.
package game
