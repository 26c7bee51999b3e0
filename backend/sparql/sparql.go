package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/semlink/backend"
	"github.com/c360/semlink/config"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/graph"
	"github.com/c360/semlink/metric"
	"github.com/c360/semlink/pkg/retry"
	"github.com/c360/semlink/pkg/tlsutil"
	"github.com/c360/semlink/vocabulary"
)

// Name is the backend name used in configuration.
const Name = "sparql"

// maxBatch bounds the identifiers of one VALUES block.
const maxBatch = 100

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default client, whose timeout is 30s.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(r *Resolver) {
		r.retry = cfg
	}
}

// WithPrefixes expands compact identifiers such as "wd:Q42" before querying.
func WithPrefixes(prefixes map[string]string) Option {
	return func(r *Resolver) {
		for p, ns := range prefixes {
			r.prefixes[p] = ns
		}
	}
}

// WithTypePredicate treats values of predicate as type tags, e.g.
// Wikidata's "instance of".
func WithTypePredicate(predicate string) Option {
	return func(r *Resolver) {
		r.typePredicates[predicate] = true
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records backend requests.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver queries a SPARQL endpoint. It implements resolver.IRIResolver
// and resolver.BatchIRIResolver.
type Resolver struct {
	endpoint       string
	client         *http.Client
	limiter        *rate.Limiter
	retry          retry.Config
	prefixes       map[string]string
	typePredicates map[string]bool
	logger         *slog.Logger
	metrics        *metric.Metrics
}

// New creates a resolver for endpoint.
func New(endpoint string, opts ...Option) (*Resolver, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: endpoint %q", errors.ErrInvalidConfig, endpoint),
			"sparql", "New", "endpoint validation")
	}
	r := &Resolver{
		endpoint:       endpoint,
		client:         &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(5), 5),
		retry:          retry.DefaultConfig(),
		prefixes:       make(map[string]string),
		typePredicates: map[string]bool{vocabulary.RdfType: true},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds the sparql backend factory to reg. Options: "endpoint",
// "rate" (requests per second), "burst", "timeout", "max_attempts",
// "prefixes" (object), "type_predicates" (list) and the tlsutil keys.
func Register(reg *backend.Registry) error {
	return reg.RegisterFactory(Name, func(_ context.Context, options map[string]any, deps backend.Dependencies) (backend.Backend, error) {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = config.GetInt(options, "max_attempts", retryCfg.MaxAttempts)

		client := &http.Client{Timeout: config.GetDuration(options, "timeout", 30*time.Second)}
		tlsConfig, err := tlsutil.LoadClientTLSConfig(tlsutil.FromOptions(options))
		if err != nil {
			return nil, err
		}
		if tlsConfig != nil {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.TLSClientConfig = tlsConfig
			client.Transport = transport
		}

		opts := []Option{
			WithHTTPClient(client),
			WithRateLimit(config.GetFloat64(options, "rate", 5), config.GetInt(options, "burst", 5)),
			WithRetry(retryCfg),
			WithLogger(deps.GetLogger()),
			WithMetrics(deps.CoreMetrics()),
		}
		if raw, ok := options["prefixes"].(map[string]any); ok {
			prefixes := make(map[string]string, len(raw))
			for p, ns := range raw {
				if s, ok := ns.(string); ok {
					prefixes[p] = s
				}
			}
			opts = append(opts, WithPrefixes(prefixes))
		}
		for _, p := range config.GetStringSlice(options, "type_predicates", nil) {
			opts = append(opts, WithTypePredicate(p))
		}
		return New(config.GetString(options, "endpoint", ""), opts...)
	})
}

// Name implements backend.Backend.
func (r *Resolver) Name() string { return Name }

// Close implements backend.Backend.
func (r *Resolver) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// Check sends an empty ASK query to the endpoint.
func (r *Resolver) Check(ctx context.Context) error {
	results, err := r.query(ctx, "ASK {}")
	if err != nil {
		return err
	}
	if results.Boolean == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: ASK answered without a boolean", errors.ErrBackendFailure),
			"sparql", "Check", "decode answer")
	}
	return nil
}

// ResolveIRI resolves one identifier. Subjects without triples resolve to nil.
func (r *Resolver) ResolveIRI(ctx context.Context, iri string) (graph.Node, error) {
	nodes, err := r.ResolveIRIs(ctx, []string{iri})
	if err != nil {
		return nil, err
	}
	return nodes[iri], nil
}

// ResolveIRIs resolves identifiers with one query per maxBatch of them.
func (r *Resolver) ResolveIRIs(ctx context.Context, iris []string) (_ map[string]graph.Node, err error) {
	defer func() { r.metrics.RecordBackend(Name, "resolve", metric.Status(err)) }()

	out := make(map[string]graph.Node, len(iris))
	for start := 0; start < len(iris); start += maxBatch {
		end := min(start+maxBatch, len(iris))
		if err := r.resolveChunk(ctx, iris[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Resolver) resolveChunk(ctx context.Context, iris []string, out map[string]graph.Node) error {
	// full IRI -> requested identifiers
	requested := make(map[string][]string, len(iris))
	full := make([]string, 0, len(iris))
	for _, iri := range iris {
		expanded, err := r.expand(iri)
		if err != nil {
			return err
		}
		if _, seen := requested[expanded]; !seen {
			full = append(full, expanded)
		}
		requested[expanded] = append(requested[expanded], iri)
	}

	results, err := r.query(ctx, selectQuery(full))
	if err != nil {
		return err
	}

	nodes := r.fold(results)
	for subject, node := range nodes {
		for _, iri := range requested[subject] {
			n := make(graph.Node, len(node)+1)
			for k, v := range node {
				n[k] = v
			}
			n[vocabulary.KeywordID] = iri
			out[iri] = n
		}
	}
	return nil
}

// expand turns a compact identifier into a full IRI using the configured
// prefixes. Absolute IRIs pass through.
func (r *Resolver) expand(iri string) (string, error) {
	full := iri
	if prefix, suffix, ok := vocabulary.SplitCompact(iri); ok {
		if ns, known := r.prefixes[prefix]; known {
			full = ns + suffix
		}
	}
	if strings.ContainsAny(full, "<>\"{}|^`\\ ") {
		return "", errors.WrapInvalid(fmt.Errorf("%w: %q cannot be used in a query", errors.ErrInvalidData, iri),
			"sparql", "Resolve", "identifier validation")
	}
	if !vocabulary.IsAbsolute(full) {
		return "", errors.WrapInvalid(fmt.Errorf("%w: %q is not absolute and has no known prefix", errors.ErrInvalidData, iri),
			"sparql", "Resolve", "identifier expansion")
	}
	return full, nil
}

func selectQuery(iris []string) string {
	var b strings.Builder
	b.WriteString("SELECT ?s ?p ?o WHERE { VALUES ?s {")
	for _, iri := range iris {
		b.WriteString(" <")
		b.WriteString(iri)
		b.WriteString(">")
	}
	b.WriteString(" } ?s ?p ?o }")
	return b.String()
}

// query posts q and decodes the JSON results, retrying transient failures.
func (r *Resolver) query(ctx context.Context, q string) (*Results, error) {
	return retry.DoWithResult(ctx, r.retry, func() (*Results, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, errors.WrapTransient(err, "sparql", "query", "rate limit wait")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint,
			strings.NewReader(url.Values{"query": {q}}.Encode()))
		if err != nil {
			return nil, errors.WrapFatal(err, "sparql", "query", "build request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/sparql-results+json")

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Debug("SPARQL request failed", "endpoint", r.endpoint, "error", err)
			return nil, errors.WrapTransient(err, "sparql", "query", "send request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%w: endpoint returned %d: %s", errors.ErrBackendFailure, resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, errors.WrapTransient(err, "sparql", "query", "check status")
			}
			return nil, errors.WrapInvalid(err, "sparql", "query", "check status")
		}

		var results Results
		if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
			return nil, errors.WrapInvalid(err, "sparql", "query", "decode results")
		}
		return &results, nil
	})
}

// Results is the SPARQL 1.1 JSON results format.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
	// Boolean is the answer of an ASK query.
	Boolean *bool `json:"boolean,omitempty"`
}

// Term is one bound value.
type Term struct {
	Type     string `json:"type"` // uri, literal, typed-literal or bnode
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Language string `json:"xml:lang,omitempty"`
}

// fold groups bindings into one node per subject. Values keep the order of
// the bindings; repeated values are kept once.
func (r *Resolver) fold(results *Results) map[string]graph.Node {
	nodes := make(map[string]graph.Node)
	seen := make(map[string]bool)
	for _, b := range results.Results.Bindings {
		s, p, o := b["s"], b["p"], b["o"]
		if s.Value == "" || p.Value == "" {
			continue
		}
		node, ok := nodes[s.Value]
		if !ok {
			node = graph.Node{vocabulary.KeywordContext: map[string]any{}}
			nodes[s.Value] = node
		}

		key := p.Value
		var value any
		if r.typePredicates[p.Value] {
			if o.Type != "uri" {
				continue
			}
			key, value = vocabulary.KeywordType, o.Value
		} else {
			value = objectValue(o)
		}

		mark := s.Value + "\x00" + key + "\x00" + fmt.Sprint(value)
		if seen[mark] {
			continue
		}
		seen[mark] = true
		list, _ := node[key].([]any)
		node[key] = append(list, value)
	}
	return nodes
}

func objectValue(o Term) any {
	switch o.Type {
	case "uri":
		return map[string]any{vocabulary.KeywordID: o.Value}
	case "bnode":
		return map[string]any{vocabulary.KeywordID: vocabulary.BlankPrefix + o.Value}
	}
	if o.Language != "" {
		return map[string]any{vocabulary.KeywordValue: o.Value, vocabulary.KeywordLanguage: o.Language}
	}
	switch o.Datatype {
	case "", vocabulary.XsdString:
		return o.Value
	case vocabulary.XsdInteger, "http://www.w3.org/2001/XMLSchema#int", "http://www.w3.org/2001/XMLSchema#long":
		if n, err := strconv.ParseInt(o.Value, 10, 64); err == nil {
			return n
		}
	case vocabulary.XsdDecimal, vocabulary.XsdDouble, "http://www.w3.org/2001/XMLSchema#float":
		if f, err := strconv.ParseFloat(o.Value, 64); err == nil {
			return f
		}
	case vocabulary.XsdBoolean:
		if v, err := strconv.ParseBool(o.Value); err == nil {
			return v
		}
	}
	return map[string]any{vocabulary.KeywordValue: o.Value, vocabulary.KeywordType: o.Datatype}
}
