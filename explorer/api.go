package explorer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Siasom1/devchain/events"
	"github.com/Siasom1/devchain/state"

	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds the explorer settings.
type Config struct {
	Enabled bool `mapstructure:"enabled" default:"false"`
	Port    int  `mapstructure:"port" default:"9500"`
}

// Chain gives the explorer live chain reads.
type Chain interface {
	Client() (simulated.Client, error)
}

// Miner seals a block on request.
type Miner interface {
	Mine(ctx context.Context) (*state.Block, error)
}

type ExplorerAPI struct {
	chain  Chain
	miner  Miner
	store  *state.State
	events *events.EventBus
	logger *zap.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	server *http.Server
	addr   *net.TCPAddr
	// quit is closed by Stop so long-lived streams return.
	quit    chan struct{}
	sockets sync.WaitGroup
}

func NewExplorerAPI(chain Chain, miner Miner, store *state.State, bus *events.EventBus, logger *zap.Logger) *ExplorerAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExplorerAPI{
		chain:  chain,
		miner:  miner,
		store:  store,
		events: bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the explorer routes.
func (api *ExplorerAPI) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /explorer/accounts", api.handleAccounts)
	mux.HandleFunc("GET /explorer/latest-blocks", api.handleLatestBlocks)
	mux.HandleFunc("GET /explorer/block/{number}", api.handleBlockByNumber)
	mux.HandleFunc("GET /explorer/tx/{hash}", api.handleTransaction)
	mux.HandleFunc("POST /explorer/mine", api.handleMine)

	// Live streams
	mux.HandleFunc("GET /explorer/stream/blocks", api.handleStreamBlocks)
	mux.HandleFunc("GET /explorer/stream/txs", api.handleStreamTxs)
	mux.HandleFunc("GET /explorer/ws", api.handleWebSocket)

	return mux
}

// Start serves the explorer on host:port (port 0 picks one) and returns the
// bound address.
func (api *ExplorerAPI) Start(host string, port int) (*net.TCPAddr, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if api.server != nil {
		return nil, errors.New("explorer already running")
	}

	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("explorer listen: %w", err)
	}

	api.server = &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	api.addr = l.Addr().(*net.TCPAddr)
	api.quit = make(chan struct{})

	go func(srv *http.Server) {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			api.logger.Error("explorer server failed", zap.Error(err))
		}
	}(api.server)

	api.logger.Info("explorer API running", zap.String("host", api.addr.IP.String()), zap.Int("port", api.addr.Port))
	return api.addr, nil
}

// Stop ends open streams and websockets, then shuts the server down.
func (api *ExplorerAPI) Stop(ctx context.Context) error {
	api.mu.Lock()
	srv, quit := api.server, api.quit
	api.server = nil
	api.mu.Unlock()

	if srv == nil {
		return nil
	}
	close(quit)

	if err := srv.Shutdown(ctx); err != nil {
		return srv.Close()
	}

	// Shutdown does not wait for hijacked websocket connections.
	done := make(chan struct{})
	go func() {
		api.sockets.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the address Start bound, or nil before Start.
func (api *ExplorerAPI) Addr() *net.TCPAddr {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.addr
}

// stopping returns the channel Stop closes. It stays closed until the next
// Start, and is nil when the handler is served by someone else.
func (api *ExplorerAPI) stopping() <-chan struct{} {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.quit
}
