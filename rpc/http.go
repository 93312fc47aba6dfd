package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reflectledger/core/events"
	"reflectledger/native/token"
	"reflectledger/storage"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// AuthTokenEnv names the environment variable holding the bearer token
// required for mutating methods. When unset, mutations are rejected.
const AuthTokenEnv = "REFLECT_RPC_TOKEN"

// Server exposes the ledger over JSON-RPC 2.0. Mutating methods require the
// bearer token and persist a fresh snapshot on success; the ledger's own
// mutex provides the serialization the accounting core demands.
type Server struct {
	ledger    *token.Ledger
	db        storage.Database
	recorder  *events.Recorder
	authToken string
	log       *slog.Logger
}

func NewServer(ledger *token.Ledger, db storage.Database, recorder *events.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ledger:    ledger,
		db:        db,
		recorder:  recorder,
		authToken: strings.TrimSpace(os.Getenv(AuthTokenEnv)),
		log:       logger,
	}
}

// Router assembles the HTTP surface: the RPC endpoint, liveness, and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr and blocks.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}
	method, ok := methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if method.mutating {
		if rpcErr := s.requireAuth(r); rpcErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			observeRequest(req.Method, false, 0)
			return
		}
	}

	start := time.Now()
	result, rpcErr := method.handler(s, &req)
	elapsed := time.Since(start).Seconds()
	if rpcErr != nil {
		observeRequest(req.Method, false, elapsed)
		writeError(w, http.StatusOK, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	observeRequest(req.Method, true, elapsed)
	if method.mutating {
		s.persistSnapshot()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "rpc auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// persistSnapshot writes the current ledger state after a successful
// mutation. Persistence failures are logged rather than surfaced: the
// in-memory ledger remains the source of truth and the next successful
// mutation retries the write.
func (s *Server) persistSnapshot() {
	if s.db == nil {
		return
	}
	blob, err := s.ledger.Snapshot()
	if err != nil {
		s.log.Error("snapshot encode failed", "err", err)
		return
	}
	if err := s.db.Put(token.SnapshotKey, blob); err != nil {
		s.log.Error("snapshot persist failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
