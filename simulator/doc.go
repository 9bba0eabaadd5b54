// Package simulator runs the local development chain.
//
// The chain is go-ethereum's in-memory simulated backend: a full eth service
// whose blocks are sealed on demand. Server seeds its genesis with the wallet
// accounts, serves JSON-RPC over HTTP and WebSocket on one port and exposes
// a Provider for raw requests.
package simulator
