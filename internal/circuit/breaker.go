package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/statuskit/statusd/internal/domain"
	apperrors "github.com/statuskit/statusd/internal/errors"
)

const (
	// PathClosed means the path is operating normally and traffic flows.
	PathClosed PathState = "CLOSED"
	// PathOpen means the path tripped and traffic is blocked.
	PathOpen PathState = "OPEN"
	// PathHalfOpen means a limited number of trial requests are allowed to
	// test recovery.
	PathHalfOpen PathState = "HALF_OPEN"
)

const (
	// OverallClosed: both paths closed, full dual-path traffic.
	OverallClosed OverallState = "CLOSED"
	// OverallOpen: traffic blocked entirely.
	OverallOpen OverallState = "OPEN"
	// OverallHalfOpen: at least one path is trialing recovery.
	OverallHalfOpen OverallState = "HALF_OPEN"
	// OverallMCPOnly: REST path is open, route over MCP only.
	OverallMCPOnly OverallState = "MCP_ONLY"
	// OverallRESTOnly: MCP path is open, route over REST only.
	OverallRESTOnly OverallState = "REST_ONLY"
)

// PathState is the state of one (server, path) circuit.
type PathState string

// OverallState is the traffic-routing state derived from the two path states.
type OverallState string

// PathSnapshot is a read-only copy of one path circuit's bookkeeping.
type PathSnapshot struct {
	Path             domain.PathType
	State            PathState
	FailureCount     int
	SuccessCount     int
	LastFailureTime  *time.Time
	LastSuccessTime  *time.Time
	OpenedTime       *time.Time
	HalfOpenRequests int
}

// FailureRecord is one entry in a server's failure history ring.
type FailureRecord struct {
	Time   time.Time
	Path   domain.PathType
	Reason string
}

// pathCircuit is the per (server, path) state machine. It is only mutated
// while the owning serverBreaker's lock is held.
type pathCircuit struct {
	path             domain.PathType
	state            PathState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	lastSuccessTime  time.Time
	openedTime       time.Time
	halfOpenRequests int
}

func newPathCircuit(path domain.PathType) *pathCircuit {
	return &pathCircuit{path: path, state: PathClosed}
}

// serverBreaker owns the two path circuits and the failure history for one
// server. Its mutex serializes evaluations per server so counters cannot be
// lost to concurrent updates.
type serverBreaker struct {
	mu      sync.Mutex
	mcp     *pathCircuit
	rest    *pathCircuit
	history []FailureRecord
}

// Breaker is the registry of per-server dual-path circuit breakers.
// All state is server-scoped; servers never affect each other.
// NewBreaker should be used to create instances of Breaker.
type Breaker struct {
	logger hclog.Logger
	cfg    Config

	mu      sync.RWMutex
	servers map[string]*serverBreaker

	now func() time.Time
}

// NewBreaker creates a breaker registry with a validated configuration.
func NewBreaker(logger hclog.Logger, cfg Config) (*Breaker, error) {
	validated, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Breaker{
		logger:  logger.Named("circuit"),
		cfg:     validated,
		servers: make(map[string]*serverBreaker),
		now:     time.Now,
	}, nil
}

// forServer returns the breaker state for a server, creating it on first use.
func (b *Breaker) forServer(name string) *serverBreaker {
	b.mu.RLock()
	sb, ok := b.servers[name]
	b.mu.RUnlock()
	if ok {
		return sb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if sb, ok = b.servers[name]; ok {
		return sb
	}
	sb = &serverBreaker{
		mcp:  newPathCircuit(domain.PathMCP),
		rest: newPathCircuit(domain.PathREST),
	}
	b.servers[name] = sb
	return sb
}

// Evaluate feeds one completed check result into the server's two path
// circuits and returns the new derived overall state. Evaluations for the
// same server are serialized internally.
func (b *Breaker) Evaluate(name string, result domain.DualHealthCheckResult) OverallState {
	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := b.now()

	// A path that was never probed (disabled in config) is left untouched:
	// absence of a result is not evidence of failure.
	if result.MCPResult != nil {
		b.evaluatePath(sb, sb.mcp, result.MCPSuccess, result.MCPResult.ErrorSummary(), now)
	}
	if result.RESTResult != nil {
		b.evaluatePath(sb, sb.rest, result.RESTSuccess, result.RESTResult.ErrorSummary(), now)
	}

	overall := b.deriveOverall(sb.mcp.state, sb.rest.state)
	b.logger.Debug("Evaluated circuit state",
		"server", name,
		"mcp_state", sb.mcp.state,
		"rest_state", sb.rest.state,
		"overall", overall,
	)

	return overall
}

// evaluatePath applies one probe outcome to a path circuit.
//
// Transitions:
//
//	CLOSED    --threshold consecutive failures--> OPEN
//	OPEN      --recovery timeout elapsed-------> HALF_OPEN (checked first)
//	HALF_OPEN --success threshold reached------> CLOSED
//	HALF_OPEN --any failure--------------------> OPEN
func (b *Breaker) evaluatePath(sb *serverBreaker, pc *pathCircuit, success bool, reason string, now time.Time) {
	// An open path whose recovery timeout elapsed starts trialing: this
	// evaluation is the first trial request.
	if pc.state == PathOpen && now.Sub(pc.openedTime) >= b.cfg.RecoveryTimeout {
		pc.state = PathHalfOpen
		pc.successCount = 0
		pc.halfOpenRequests = 0
	}

	switch pc.state {
	case PathClosed:
		if success {
			pc.recordSuccess(now)
			return
		}
		pc.recordFailure(now)
		b.appendHistory(sb, pc.path, reason, now)
		if pc.failureCount >= b.cfg.pathThreshold(pc.path == domain.PathMCP) {
			b.open(pc, now)
		}

	case PathHalfOpen:
		pc.halfOpenRequests++
		if success {
			pc.recordSuccess(now)
			if pc.successCount >= b.cfg.SuccessThreshold {
				b.close(pc)
			}
			return
		}
		// A single failed trial re-opens the path.
		pc.recordFailure(now)
		b.appendHistory(sb, pc.path, reason, now)
		b.open(pc, now)

	case PathOpen:
		// Still inside the recovery window: record the observation but hold
		// the state.
		if success {
			pc.lastSuccessTime = now
			return
		}
		pc.lastFailureTime = now
		b.appendHistory(sb, pc.path, reason, now)
	}
}

func (pc *pathCircuit) recordSuccess(now time.Time) {
	pc.successCount++
	pc.failureCount = 0
	pc.lastSuccessTime = now
}

func (pc *pathCircuit) recordFailure(now time.Time) {
	pc.failureCount++
	pc.successCount = 0
	pc.lastFailureTime = now
}

func (b *Breaker) open(pc *pathCircuit, now time.Time) {
	pc.state = PathOpen
	pc.openedTime = now
	pc.halfOpenRequests = 0
	b.logger.Warn("Circuit path opened", "path", pc.path, "failures", pc.failureCount)
}

func (b *Breaker) close(pc *pathCircuit) {
	pc.state = PathClosed
	pc.failureCount = 0
	pc.halfOpenRequests = 0
	b.logger.Info("Circuit path closed after recovery", "path", pc.path)
}

// deriveOverall computes the traffic-routing state from the two path states.
func (b *Breaker) deriveOverall(mcp, rest PathState) OverallState {
	switch {
	case mcp == PathClosed && rest == PathClosed:
		return OverallClosed
	case mcp == PathOpen && rest == PathOpen:
		return OverallOpen
	case b.cfg.RequireBothPathsHealthy && (mcp == PathOpen || rest == PathOpen):
		return OverallOpen
	case rest == PathOpen:
		return OverallMCPOnly
	case mcp == PathOpen:
		return OverallRESTOnly
	default:
		// At least one path is half-open and neither is open.
		return OverallHalfOpen
	}
}

// OverallStateFor returns the current derived state without mutating anything.
func (b *Breaker) OverallStateFor(name string) OverallState {
	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return b.deriveOverall(sb.mcp.state, sb.rest.state)
}

// AllowMCP reports whether MCP traffic may currently flow to the server.
func (b *Breaker) AllowMCP(name string) bool {
	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return b.allowPath(sb.mcp)
}

// AllowREST reports whether REST traffic may currently flow to the server.
func (b *Breaker) AllowREST(name string) bool {
	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return b.allowPath(sb.rest)
}

// allowPath reports whether traffic may flow over a path: CLOSED always
// allows, HALF_OPEN allows while trial budget remains, and OPEN allows a
// trial once the recovery timeout has elapsed (the following evaluation
// performs the OPEN -> HALF_OPEN transition).
func (b *Breaker) allowPath(pc *pathCircuit) bool {
	switch pc.state {
	case PathClosed:
		return true
	case PathHalfOpen:
		return pc.halfOpenRequests < b.cfg.HalfOpenMaxRequests
	case PathOpen:
		return b.now().Sub(pc.openedTime) >= b.cfg.RecoveryTimeout
	default:
		return false
	}
}

// AvailablePaths returns the traffic-routing view for a server based on the
// current breaker state (not last-check success): ["both"], ["mcp"],
// ["rest"] or ["none"].
func (b *Breaker) AvailablePaths(name string) []string {
	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	mcpOK := b.allowPath(sb.mcp)
	restOK := b.allowPath(sb.rest)

	switch {
	case mcpOK && restOK:
		return []string{"both"}
	case mcpOK:
		return []string{string(domain.PathMCP)}
	case restOK:
		return []string{string(domain.PathREST)}
	default:
		return []string{"none"}
	}
}

// Reset force-resets one or both paths of a server to CLOSED with zeroed
// counters. A nil path resets both. Used for manual recovery.
func (b *Breaker) Reset(name string, path *domain.PathType) error {
	if path != nil && *path != domain.PathMCP && *path != domain.PathREST {
		return fmt.Errorf("%w: unknown path '%s'", apperrors.ErrBadRequest, *path)
	}

	sb := b.forServer(name)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if path == nil || *path == domain.PathMCP {
		sb.mcp = newPathCircuit(domain.PathMCP)
	}
	if path == nil || *path == domain.PathREST {
		sb.rest = newPathCircuit(domain.PathREST)
	}

	b.logger.Info("Circuit breaker reset", "server", name, "path", pathLabel(path))
	return nil
}

func pathLabel(path *domain.PathType) string {
	if path == nil {
		return "both"
	}
	return string(*path)
}

// PathStates returns snapshots of the server's two path circuits.
func (b *Breaker) PathStates(name string) (mcp PathSnapshot, rest PathSnapshot, err error) {
	b.mu.RLock()
	sb, ok := b.servers[name]
	b.mu.RUnlock()
	if !ok {
		return PathSnapshot{}, PathSnapshot{}, fmt.Errorf("%w: %s", apperrors.ErrBreakerNotTracked, name)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	return snapshot(sb.mcp), snapshot(sb.rest), nil
}

// History returns a copy of the server's failure history, newest last.
func (b *Breaker) History(name string) []FailureRecord {
	b.mu.RLock()
	sb, ok := b.servers[name]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	out := make([]FailureRecord, len(sb.history))
	copy(out, sb.history)
	return out
}

// Forget drops all breaker state for a server. Used when a server is removed
// from the configuration.
func (b *Breaker) Forget(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.servers, name)
}

// appendHistory records a failure, pruning by window and ring size.
func (b *Breaker) appendHistory(sb *serverBreaker, path domain.PathType, reason string, now time.Time) {
	cutoff := now.Add(-b.cfg.FailureHistoryWindow)
	pruned := sb.history[:0]
	for _, rec := range sb.history {
		if rec.Time.After(cutoff) {
			pruned = append(pruned, rec)
		}
	}
	sb.history = pruned

	sb.history = append(sb.history, FailureRecord{Time: now, Path: path, Reason: reason})
	if len(sb.history) > b.cfg.MaxHistorySize {
		sb.history = sb.history[len(sb.history)-b.cfg.MaxHistorySize:]
	}
}

func snapshot(pc *pathCircuit) PathSnapshot {
	s := PathSnapshot{
		Path:             pc.path,
		State:            pc.state,
		FailureCount:     pc.failureCount,
		SuccessCount:     pc.successCount,
		HalfOpenRequests: pc.halfOpenRequests,
	}
	if !pc.lastFailureTime.IsZero() {
		t := pc.lastFailureTime
		s.LastFailureTime = &t
	}
	if !pc.lastSuccessTime.IsZero() {
		t := pc.lastSuccessTime
		s.LastSuccessTime = &t
	}
	if !pc.openedTime.IsZero() && pc.state == PathOpen {
		t := pc.openedTime
		s.OpenedTime = &t
	}
	return s
}
