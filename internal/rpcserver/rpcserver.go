// Package rpcserver exposes the reward engine's handle/query surface
// over HTTP (gorilla/mux) and pushes the log attributes of successful
// handle calls to connected websocket clients (gorilla/websocket), the way
// the teacher's node package pairs an HTTP JSON-RPC server with a
// websocket upgrade on /ws (chain/node/rpc.go).
package rpcserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/emitlabs/reward-engine/internal/sinkmsg"
)

// Request is the envelope every handle/query endpoint accepts, mirroring
// the teacher's JSONRPCRequest shape but scoped to this engine's own
// method namespace instead of eth_*.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     interface{}     `json:"id,omitempty"`
}

// Response is the matching envelope, padded to a fixed block size before
// it goes out on the wire (spec §4.5).
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandlerFunc processes one decoded request and returns its result.
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// Server routes handle/query calls to registered HandlerFuncs and
// broadcasts a JSON event carrying the log attributes to every websocket
// subscriber after each successful handle call that returns a
// sinkmsg.Response. Query results and other result shapes are not
// broadcast.
type Server struct {
	log      *slog.Logger
	methods  map[string]HandlerFunc
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:     log,
		methods: make(map[string]HandlerFunc),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a named method handler, e.g. "deposit", "query_rewards".
func (s *Server) Register(method string, fn HandlerFunc) {
	s.methods[method] = fn
}

// Router builds the gorilla/mux router serving /rpc and /ws.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/rpc", s.handleRPC).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, -32700, "parse error: "+err.Error())
		return
	}

	fn, ok := s.methods[req.Method]
	if !ok {
		s.writeError(w, req.ID, -32601, "method not found: "+req.Method)
		return
	}

	result, err := fn(req.Params)
	if err != nil {
		s.log.Warn("handle failed", "method", req.Method, "error", err)
		s.writeError(w, req.ID, -32000, err.Error())
		return
	}

	if resp, ok := result.(sinkmsg.Response); ok {
		s.broadcastEvent(req.Method, resp.Attrs)
	}
	s.writeResult(w, req.ID, result)
}

func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	body, err := json.Marshal(Response{Result: result, ID: id})
	if err != nil {
		s.writeError(w, id, -32603, "internal error: "+err.Error())
		return
	}
	_, _ = w.Write(sinkmsg.PadResponse(body))
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	body, _ := json.Marshal(Response{Error: &Error{Code: code, Message: message}, ID: id})
	_, _ = w.Write(sinkmsg.PadResponse(body))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// This connection is write-only from the server's side; drain and
	// discard anything the client sends so the read loop notices a
	// closed socket promptly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type event struct {
	Method string      `json:"method"`
	Result interface{} `json:"result"`
}

func (s *Server) broadcastEvent(method string, result interface{}) {
	body, err := json.Marshal(event{Method: method, Result: result})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			s.log.Warn("websocket write failed", "error", err)
		}
	}
}
