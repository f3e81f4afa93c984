// Package master implements the master-side route table (C5's host),
// worker registration (C6), and the status aggregator (C7).
package master

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/outpost-systems/hivemind/internal/apperr"
	"github.com/outpost-systems/hivemind/pkg/dispatch"
	"github.com/outpost-systems/hivemind/pkg/log"
	"github.com/outpost-systems/hivemind/pkg/metrics"
	"github.com/outpost-systems/hivemind/pkg/orchestrator"
	"github.com/outpost-systems/hivemind/pkg/registry"
	"github.com/outpost-systems/hivemind/pkg/types"
)

const helpText = `hivemind master
routes: /help /loadtest /countwords /matrixmult /workers /slave /metrics /health /ready /live
leaf routes (atomic forward): /createfile /deletefile /fibonacci /hash /random /reverse /simulate /sleep /timestamp /toupper
`

// forwardedLeafRoutes lists the atomic-only leaf routes the master
// forwards verbatim, keyed by method (spec §4.5's route table).
var forwardedLeafRoutes = map[string]string{
	"/createfile": http.MethodPost,
	"/deletefile": http.MethodDelete,
	"/fibonacci":  http.MethodGet,
	"/hash":       http.MethodGet,
	"/random":     http.MethodGet,
	"/reverse":    http.MethodGet,
	"/simulate":   http.MethodGet,
	"/sleep":      http.MethodGet,
	"/timestamp":  http.MethodGet,
	"/toupper":    http.MethodGet,
}

// Server wires the master's route table to the registry, dispatcher, and
// orchestrator.
type Server struct {
	registry     *registry.Registry
	dispatch     *dispatch.Dispatcher
	orchestrator *orchestrator.Orchestrator
	slaveCode    string
}

func NewServer(reg *registry.Registry, d *dispatch.Dispatcher, orch *orchestrator.Orchestrator, slaveCode string) *Server {
	return &Server{registry: reg, dispatch: d, orchestrator: orch, slaveCode: slaveCode}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

func (s *Server) handle(rw http.ResponseWriter, r *http.Request) {
	log.Debug(fmt.Sprintf("%s %s", r.Method, r.URL.Path))

	switch {
	case r.URL.Path == "/metrics":
		metrics.Handler().ServeHTTP(rw, r)
	case r.URL.Path == "/health":
		metrics.HealthHandler()(rw, r)
	case r.URL.Path == "/ready":
		metrics.ReadyHandler()(rw, r)
	case r.URL.Path == "/live":
		metrics.LivenessHandler()(rw, r)
	case r.URL.Path == "/help":
		s.handleHelp(rw, r)
	case r.URL.Path == "/loadtest":
		s.handleLoadTest(rw, r)
	case r.URL.Path == "/countwords":
		s.handleCountWords(rw, r)
	case r.URL.Path == "/matrixmult":
		s.handleMatrixMult(rw, r)
	case r.URL.Path == "/workers":
		s.handleWorkers(rw, r)
	case r.URL.Path == "/slave":
		s.handleSlave(rw, r)
	default:
		if method, ok := forwardedLeafRoutes[r.URL.Path]; ok {
			s.handleForwardedLeaf(rw, r, method)
			return
		}
		http.Error(rw, "", http.StatusNotFound)
	}
}

func (s *Server) handleHelp(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte(helpText))
}

// handleForwardedLeaf forwards one of the atomic leaf routes verbatim,
// preserving method, query string, and body (spec §4.5).
func (s *Server) handleForwardedLeaf(rw http.ResponseWriter, r *http.Request, method string) {
	if r.Method != method {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, "", http.StatusBadRequest)
		return
	}
	res, err := s.dispatch.Atomic(r.Context(), dispatch.Outbound{
		Method:      method,
		Path:        r.URL.Path + "?" + r.URL.RawQuery,
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	})
	writeDispatchResult(rw, res, err)
}

func (s *Server) handleLoadTest(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	tasksS := r.URL.Query().Get("tasks")
	sleepS := r.URL.Query().Get("sleep")
	tasks, err1 := strconv.Atoi(tasksS)
	sleep, err2 := strconv.Atoi(sleepS)
	if tasksS == "" || sleepS == "" || err1 != nil || err2 != nil {
		http.Error(rw, "Invalid query params provided!", http.StatusBadRequest)
		return
	}
	s.orchestrator.LoadTest(r.Context(), tasks, sleep)
	rw.WriteHeader(http.StatusOK)
}

// archiveDir is the master-local mirror of the path the worker checks
// before counting (spec §4.5, original_source's server_master/routes.rs
// `std::fs::exists(format!("archivos/{name}"))`).
const archiveDir = "archivos"

func (s *Server) handleCountWords(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(rw, "Missing name parameter!", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(archiveDir + "/" + name); err != nil {
		http.Error(rw, "Could not read file", http.StatusBadRequest)
		return
	}
	res, err := s.orchestrator.CountWords(r.Context(), name)
	writeDispatchResult(rw, res, err)
}

func (s *Server) handleMatrixMult(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, "Unable to read request body!", http.StatusBadRequest)
		return
	}
	in, err := parseMatrixMultBody(body, r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.orchestrator.MatrixMult(r.Context(), in)
	writeDispatchResult(rw, res, err)
}

func (s *Server) handleWorkers(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}
	n := s.registry.Size()
	statuses := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		w, ok := s.registry.Get(i)
		if !ok {
			continue
		}
		res, err := s.dispatch.Specific(r.Context(), w, dispatch.Outbound{Method: http.MethodGet, Path: "/status"})
		if err != nil || res.StatusCode != http.StatusOK {
			continue
		}
		statuses = append(statuses, json.RawMessage(res.Body))
	}

	if len(statuses) == 0 {
		http.Error(rw, "No workers reported status!", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(statuses)
	if err != nil {
		http.Error(rw, "", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(payload)
}

// handleSlave implements C6: validates port and shared secret, derives the
// worker address from the TCP peer IP plus the posted port, and installs
// it in the registry.
func (s *Server) handleSlave(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "", http.StatusMethodNotAllowed)
		return
	}

	portS := r.URL.Query().Get("port")
	if portS == "" {
		http.Error(rw, "Missing port parameter!", http.StatusBadRequest)
		return
	}
	port, err := strconv.ParseUint(portS, 10, 16)
	if err != nil {
		http.Error(rw, "Invalid port parameter!", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("slave_code")
	if code == "" {
		http.Error(rw, "Missing code parameter!", http.StatusBadRequest)
		return
	}
	if code != s.slaveCode {
		http.Error(rw, "Invalid code parameter!", http.StatusBadRequest)
		return
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	address := fmt.Sprintf("%s:%d", host, port)
	s.registry.Add(address)
	log.Info(fmt.Sprintf("registered worker %s", address))

	rw.WriteHeader(http.StatusOK)
}

func writeDispatchResult(rw http.ResponseWriter, res *dispatch.Result, err error) {
	if err != nil {
		status := apperr.StatusOf(err)
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte(errMessage(err)))
		return
	}
	if res.ContentType != "" {
		rw.Header().Set("Content-Type", res.ContentType)
	}
	rw.WriteHeader(res.StatusCode)
	_, _ = rw.Write(res.Body)
}

func errMessage(err error) string {
	return err.Error()
}

// parseMatrixMultBody parses the JSON {matrix_a:{matrix:[[...]]}, ...}
// shape spec §4.5 names. If the direct parse fails, it falls back to
// URL-decoding the body and reparsing, matching original_source's
// matrix_total.rs::parse_matrices two-stage attempt (a client posting
// application/x-www-form-urlencoded ends up with the JSON percent-encoded
// and '+' standing in for spaces).
func parseMatrixMultBody(body []byte, contentType string) (types.MatrixMultInput, error) {
	in, err := unmarshalMatrixMultWire(body)
	if err != nil {
		decoded, decErr := url.QueryUnescape(string(body))
		if decErr != nil {
			return types.MatrixMultInput{}, fmt.Errorf("Unable to parse matrix body!")
		}
		in, err = unmarshalMatrixMultWire([]byte(decoded))
		if err != nil {
			return types.MatrixMultInput{}, fmt.Errorf("Unable to parse matrix body!")
		}
		log.Debug(fmt.Sprintf("parsed matrixmult body after URL-decoding fallback (content-type %q)", contentType))
	}

	if err := in.Validate(); err != nil {
		return types.MatrixMultInput{}, err
	}
	return in, nil
}

// unmarshalMatrixMultWire is the single decode attempt parseMatrixMultBody
// tries twice: once on the raw body, once on its URL-decoded form.
func unmarshalMatrixMultWire(body []byte) (types.MatrixMultInput, error) {
	var wire struct {
		MatrixA struct {
			Matrix [][]int64 `json:"matrix"`
		} `json:"matrix_a"`
		MatrixB struct {
			Matrix [][]int64 `json:"matrix"`
		} `json:"matrix_b"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return types.MatrixMultInput{}, err
	}
	return types.MatrixMultInput{
		MatrixA: types.Matrix{Rows: wire.MatrixA.Matrix},
		MatrixB: types.Matrix{Rows: wire.MatrixB.Matrix},
	}, nil
}
