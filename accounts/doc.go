// Package accounts reads the account mapping that seeds the development chain
// and reshapes it into the wallet accounts handed to the simulator.
//
// The mapping is a JSON object keyed by free-form identifiers:
//
//	{
//	    "alice": {"private_key": "0x...", "balance": 1000},
//	    "bob":   {"private_key": "0x...", "balance": "0x3e8"}
//	}
//
// It can come from a file (LoadFile) or from process arguments (ParseArgs).
// Transform keeps the document order, drops the identifiers and copies every
// private key and balance verbatim. Nothing is validated here; the simulator
// rejects keys and balances it cannot use.
package accounts
