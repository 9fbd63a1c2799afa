package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/resilience"
)

const wolframEndpoint = "https://api.wolframalpha.com/v1/result"

// Solver failure classes. Callers branch on these substrings, so the three
// classes must stay distinct.
var (
	errWolframNotConfigured  = errors.New("wolfram alpha is not configured")
	errWolframCouldNotParse  = errors.New("wolfram alpha could not interpret the input")
	errWolframTimeout        = errors.New("wolfram alpha request timed out")
	errWolframUnavailableFmt = "wolfram alpha temporarily unavailable: %s"
)

// WolframConfig configures the symbolic solver adapter.
type WolframConfig struct {
	AppID     string
	Endpoint  string
	Timeout   time.Duration
	CacheTTL  time.Duration
	RateLimit float64
	RateBurst int
	Logger    zerolog.Logger
}

// WolframProvider implements SymbolicSolver against the Wolfram Alpha short
// answers API. Successful results are cached through the resilience cache.
type WolframProvider struct {
	cfg    WolframConfig
	httpc  *http.Client
	res    *resilience.Manager
	logger zerolog.Logger
}

// NewWolframProvider builds the adapter.
func NewWolframProvider(cfg WolframConfig, res *resilience.Manager) *WolframProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = wolframEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 4
	}
	return &WolframProvider{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		res:    res,
		logger: cfg.Logger.With().Str("component", "wolfram_provider").Logger(),
	}
}

// Name implements SymbolicSolver.
func (p *WolframProvider) Name() string { return "wolfram" }

// IsAvailable implements SymbolicSolver.
func (p *WolframProvider) IsAvailable() bool { return p.cfg.AppID != "" }

// IsEnabled implements SymbolicSolver. Availability implies enablement.
func (p *WolframProvider) IsEnabled() bool { return p.IsAvailable() }

var (
	fracRe  = regexp.MustCompile(`\\frac\s*\{([^{}]*)\}\s*\{([^{}]*)\}`)
	mulRe   = regexp.MustCompile(`\\times|\\cdot|×`)
	divRe   = regexp.MustCompile(`\\div|÷`)
	powRe   = regexp.MustCompile(`\^\{([^{}]*)\}`)
	sqrtRe  = regexp.MustCompile(`\\sqrt\s*\{([^{}]*)\}`)
	texCmds = regexp.MustCompile(`\\left|\\right|\\,|\\;|\$`)
)

// NormalizeExpression converts LaTeX-flavored input into a form the solver
// accepts: \frac{a}{b} becomes (a)/(b), multiplication and division markers
// become * and /, braces on exponents become parens.
func NormalizeExpression(expr string) string {
	out := strings.TrimSpace(expr)
	for fracRe.MatchString(out) {
		out = fracRe.ReplaceAllString(out, "($1)/($2)")
	}
	out = sqrtRe.ReplaceAllString(out, "sqrt($1)")
	out = powRe.ReplaceAllString(out, "^($1)")
	out = mulRe.ReplaceAllString(out, "*")
	out = divRe.ReplaceAllString(out, "/")
	out = texCmds.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Solve evaluates the expression. The call is guarded by a circuit breaker
// and retried on transient failures; "could not interpret" and missing
// configuration short-circuit.
func (p *WolframProvider) Solve(ctx context.Context, expression string) SolveResult {
	if !p.IsAvailable() {
		return SolveResult{Error: errWolframNotConfigured.Error()}
	}

	normalized := NormalizeExpression(expression)
	if normalized == "" {
		return SolveResult{Error: errWolframCouldNotParse.Error()}
	}

	cacheKey := "wolfram:" + hashKey(normalized)
	if p.res != nil {
		if cached, ok := p.res.Cache().Get(ctx, cacheKey); ok {
			return SolveResult{Success: true, Result: cached}
		}
		// Cache misses spend a token; the oracle never sees more than the
		// configured rate.
		if !p.res.Allow("wolfram", p.cfg.RateLimit, p.cfg.RateBurst) {
			return SolveResult{Error: fmt.Sprintf(errWolframUnavailableFmt, "local rate limit exceeded")}
		}
	}

	var answer string
	var err error
	if p.res != nil {
		call := func(ctx context.Context) error {
			return p.res.WithTimeout(ctx, p.cfg.Timeout, func(ctx context.Context) error {
				var qerr error
				answer, qerr = p.query(ctx, normalized)
				return qerr
			})
		}
		err = p.res.WithBreaker(ctx, "wolfram", func(ctx context.Context) error {
			return p.res.Retry(ctx, "wolfram", resilience.DefaultRetryConfig(), call)
		})
	} else {
		answer, err = p.query(ctx, normalized)
	}
	if err != nil {
		if errors.Is(err, resilience.ErrTimeout) {
			return SolveResult{Error: errWolframTimeout.Error()}
		}
		return SolveResult{Error: err.Error()}
	}

	if p.res != nil {
		p.res.Cache().Set(ctx, cacheKey, answer, p.cfg.CacheTTL)
	}
	return SolveResult{Success: true, Result: answer}
}

// SolveBatch solves sequentially, preserving order and continuing past
// individual failures. Sequential on purpose: deterministic latency
// attribution and no rate-limit bursts against the oracle.
func (p *WolframProvider) SolveBatch(ctx context.Context, expressions []string) []SolveResult {
	out := make([]SolveResult, 0, len(expressions))
	for _, expr := range expressions {
		out = append(out, p.Solve(ctx, expr))
	}
	return out
}

func (p *WolframProvider) query(ctx context.Context, expression string) (string, error) {
	endpoint := fmt.Sprintf("%s?appid=%s&i=%s", p.cfg.Endpoint, url.QueryEscape(p.cfg.AppID), url.QueryEscape(expression))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", resilience.Permanent(err)
	}

	start := time.Now()
	resp, err := p.httpc.Do(req)
	requestDuration.WithLabelValues(p.Name(), "solve").Observe(time.Since(start).Seconds())
	if err != nil {
		requestFailures.WithLabelValues(p.Name(), "solve").Inc()
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := strings.TrimSpace(string(raw))

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotImplemented:
		// The API understood the request but could not make sense of the
		// input. Retrying the same expression cannot help.
		requestFailures.WithLabelValues(p.Name(), "solve").Inc()
		return "", resilience.Permanent(errWolframCouldNotParse)
	default:
		requestFailures.WithLabelValues(p.Name(), "solve").Inc()
		return "", fmt.Errorf(errWolframUnavailableFmt, fmt.Sprintf("status %d: %s", resp.StatusCode, body))
	}
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
