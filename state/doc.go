// Package state keeps the node's own bookkeeping in an in-memory LevelDB:
// the seeded accounts (with their secret keys and genesis balances) and a
// summary of every block the miner sealed, indexed by number and by
// transaction hash. Chain state proper lives in the simulator.
package state
