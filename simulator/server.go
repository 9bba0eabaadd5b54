package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/Siasom1/devchain/params"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadyListening = errors.New("simulator already listening")
	ErrNotListening     = errors.New("simulator not listening")
)

// rpcModules are served over both HTTP and WebSocket.
var rpcModules = []string{"eth", "net", "web3", "txpool", "debug"}

// Server runs a simulated chain seeded with the wallet accounts and serves
// JSON-RPC for it.
type Server struct {
	ID uuid.UUID

	opts   Options
	logger *zap.Logger

	mu       sync.RWMutex
	backend  *simulated.Backend
	addr     *net.TCPAddr
	provider *Provider
	seeded   []SeededAccount

	mineMu sync.Mutex
}

// NewServer returns an unstarted server.
func NewServer(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Chain = opts.Chain.withDefaults()

	id := uuid.New()
	return &Server{
		ID:     id,
		opts:   opts,
		logger: logger.With(zap.String("instance", id.String())),
	}
}

// Listen builds the genesis allocation and starts the chain with its
// JSON-RPC endpoint bound to port on the configured host. Port 0 picks a free
// port; Address reports the one chosen.
func (s *Server) Listen(ctx context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		return ErrAlreadyListening
	}

	alloc, seeded, err := buildAlloc(s.opts.Wallet.Accounts)
	if err != nil {
		return err
	}

	host := s.opts.Chain.Host
	port, err = resolvePort(host, port)
	if err != nil {
		return err
	}

	backend, err := startBackend(alloc,
		s.configure(host, port),
		simulated.WithBlockGasLimit(s.opts.Chain.GasLimit),
	)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", net.JoinHostPort(host, strconv.Itoa(port)), err)
	}

	endpoint := "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		client.Close()
		_ = backend.Close()
		return err
	}

	s.backend = backend
	s.addr = addr
	s.provider = &Provider{client: client}
	s.seeded = seeded

	s.logger.Info("simulated chain listening",
		zap.String("endpoint", endpoint),
		zap.Uint64("chain_id", s.opts.Chain.ChainID),
		zap.Int("accounts", len(seeded)),
	)
	return nil
}

func (s *Server) configure(host string, port int) func(*node.Config, *ethconfig.Config) {
	chain := &params.ChainConfig{ChainID: s.opts.Chain.ChainID}

	return func(nodeConf *node.Config, ethConf *ethconfig.Config) {
		nodeConf.IPCPath = ""

		nodeConf.HTTPHost = host
		nodeConf.HTTPPort = port
		nodeConf.HTTPModules = rpcModules
		nodeConf.HTTPCors = []string{"*"}
		nodeConf.HTTPVirtualHosts = []string{"*"}

		nodeConf.WSHost = host
		nodeConf.WSPort = port
		nodeConf.WSModules = rpcModules
		nodeConf.WSOrigins = []string{"*"}

		ethConf.NetworkId = chain.ChainID
		ethConf.Genesis.Config = chain.EthereumConfig()
	}
}

// startBackend turns the panic the simulated backend raises on a failed
// start into an error.
func startBackend(alloc types.GenesisAlloc, opts ...func(*node.Config, *ethconfig.Config)) (backend *simulated.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("start simulated chain: %v", r)
		}
	}()
	return simulated.NewBackend(alloc, opts...), nil
}

func resolvePort(host string, port int) (int, error) {
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	if port != 0 {
		return port, nil
	}

	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}

// Address returns the bound JSON-RPC address, or nil before Listen.
func (s *Server) Address() *net.TCPAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Port returns the bound port, or 0 before Listen.
func (s *Server) Port() int {
	if addr := s.Address(); addr != nil {
		return addr.Port
	}
	return 0
}

// Endpoint returns the HTTP JSON-RPC URL.
func (s *Server) Endpoint() string {
	addr := s.Address()
	if addr == nil {
		return ""
	}
	return "http://" + addr.String()
}

// Provider returns the request interface, or nil before Listen.
func (s *Server) Provider() *Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Accounts returns the seeded accounts in wallet order.
func (s *Server) Accounts() []SeededAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SeededAccount, len(s.seeded))
	copy(out, s.seeded)
	return out
}

// Client returns an in-process client for the running chain.
func (s *Server) Client() (simulated.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.backend == nil {
		return nil, ErrNotListening
	}
	return s.backend.Client(), nil
}

// ChainID returns the configured chain id.
func (s *Server) ChainID() uint64 {
	return s.opts.Chain.ChainID
}

// Mine seals a block holding the pending transactions and returns its hash.
func (s *Server) Mine() (common.Hash, error) {
	s.mu.RLock()
	backend := s.backend
	s.mu.RUnlock()

	if backend == nil {
		return common.Hash{}, ErrNotListening
	}

	s.mineMu.Lock()
	defer s.mineMu.Unlock()
	return backend.Commit(), nil
}

// Close stops the chain. Closing an unstarted server is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if s.provider != nil {
		s.provider.client.Close()
	}
	err := s.backend.Close()

	s.backend = nil
	s.provider = nil
	s.logger.Info("simulated chain stopped")
	return err
}
