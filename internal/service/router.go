package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/metrics"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/policy"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Transport performs upstream requests. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// GenerationSource reports the generation that currently controls the cache.
type GenerationSource interface {
	CurrentGeneration() string
}

// ConnectivityHint reports whether the client believes it is online.
type ConnectivityHint interface {
	Online() bool
}

// RouterConfig holds configuration for the cache router.
type RouterConfig struct {
	// NetworkTimeout bounds every upstream fetch.
	NetworkTimeout time.Duration
	// MaxBodyBytes caps buffered upstream bodies.
	MaxBodyBytes int64
	// AppOrigin resolves relative URLs, manifest paths and the shell.
	AppOrigin *url.URL
	// ShellPaths are tried in order when a navigation has nothing cached.
	ShellPaths []string
	// PrecacheConcurrency bounds parallel manifest fetches.
	PrecacheConcurrency int
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		NetworkTimeout:      10 * time.Second,
		MaxBodyBytes:        10 << 20,
		ShellPaths:          []string{"/index.html", "/"},
		PrecacheConcurrency: 4,
	}
}

// CacheRouter decides, per request, whether to answer from the network or
// the cache, and writes successful network answers through to the cache.
type CacheRouter struct {
	classifier   *policy.Classifier
	store        cache.Store
	transport    Transport
	generations  GenerationSource
	connectivity ConnectivityHint
	config       RouterConfig
	now          func() time.Time
}

// NewCacheRouter creates a new cache router. connectivity may be nil.
func NewCacheRouter(
	classifier *policy.Classifier,
	store cache.Store,
	transport Transport,
	generations GenerationSource,
	connectivity ConnectivityHint,
	config RouterConfig,
) *CacheRouter {
	defaults := DefaultRouterConfig()
	if config.NetworkTimeout <= 0 {
		config.NetworkTimeout = defaults.NetworkTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if len(config.ShellPaths) == 0 {
		config.ShellPaths = defaults.ShellPaths
	}
	if config.PrecacheConcurrency <= 0 {
		config.PrecacheConcurrency = defaults.PrecacheConcurrency
	}
	return &CacheRouter{
		classifier:   classifier,
		store:        store,
		transport:    transport,
		generations:  generations,
		connectivity: connectivity,
		config:       config,
		now:          time.Now,
	}
}

// Handle routes one intercepted request. It returns either a Response or an
// error; an *model.UnavailableError when neither source can answer.
func (r *CacheRouter) Handle(ctx context.Context, req *http.Request) (*model.Response, error) {
	req = r.resolve(req)
	desc := policy.Describe(req)
	class := r.classifier.Class(desc)
	pol := policy.PolicyFor(class)
	key := model.NewRequestKey(req.Method, req.URL)

	rc := routeContext{
		req:        req,
		key:        key,
		class:      class,
		policy:     pol,
		generation: r.generations.CurrentGeneration(),
		issuedAt:   r.now(),
	}

	var (
		resp *model.Response
		err  error
	)
	switch pol {
	case model.CacheFirst:
		resp, err = r.cacheFirst(ctx, rc)
	case model.NetworkOnly:
		resp, err = r.networkOnly(ctx, rc)
	default:
		resp, err = r.networkFirst(ctx, rc)
	}

	if err != nil {
		metrics.RecordUnavailable(pol.String())
		return nil, err
	}
	if req.Method == http.MethodHead {
		// HEAD shares the GET slot and answers with its headers only.
		resp.Body = nil
	}
	metrics.RecordRouted(pol.String(), string(resp.Source))
	return resp, nil
}

// routeContext is the per-request routing state, captured at issue time.
type routeContext struct {
	req        *http.Request
	key        model.RequestKey
	class      model.RequestClass
	policy     model.CachePolicy
	generation string
	issuedAt   time.Time
}

func (rc routeContext) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"component":  "CacheRouter",
		"key":        rc.key.String(),
		"policy":     rc.policy.String(),
		"generation": rc.generation,
	})
}

func (r *CacheRouter) networkFirst(ctx context.Context, rc routeContext) (*model.Response, error) {
	if r.offline() {
		if cached := r.lookup(ctx, rc.generation, rc.key, model.SourceCache); cached != nil {
			return cached, nil
		}
	}

	resp, err := r.fetch(ctx, rc.req, rc.key)
	if err == nil && resp.OK() {
		r.remember(ctx, rc, resp)
		return resp, nil
	}

	if cached := r.lookup(ctx, rc.generation, rc.key, model.SourceCache); cached != nil {
		return cached, nil
	}
	if rc.class == model.ClassNavigation {
		if shell := r.shell(ctx, rc.generation); shell != nil {
			return shell, nil
		}
	}
	if err == nil {
		// An application error, not an outage.
		return resp, nil
	}
	return nil, &model.UnavailableError{Key: rc.key, Class: rc.class, Cause: err}
}

func (r *CacheRouter) cacheFirst(ctx context.Context, rc routeContext) (*model.Response, error) {
	if cached := r.lookup(ctx, rc.generation, rc.key, model.SourceCache); cached != nil {
		return cached, nil
	}

	resp, err := r.fetch(ctx, rc.req, rc.key)
	if err != nil {
		return nil, &model.UnavailableError{Key: rc.key, Class: rc.class, Cause: err}
	}
	if resp.OK() {
		r.remember(ctx, rc, resp)
	}
	return resp, nil
}

func (r *CacheRouter) networkOnly(ctx context.Context, rc routeContext) (*model.Response, error) {
	resp, err := r.fetch(ctx, rc.req, rc.key)
	if err != nil {
		return nil, &model.UnavailableError{Key: rc.key, Class: rc.class, Cause: err}
	}
	return resp, nil
}

func (r *CacheRouter) offline() bool {
	return r.connectivity != nil && !r.connectivity.Online()
}

// fetch performs one bounded upstream request and buffers its body. When the
// deadline passes the request is cancelled and its body is discarded.
func (r *CacheRouter) fetch(ctx context.Context, req *http.Request, key model.RequestKey) (*model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.NetworkTimeout)
	defer cancel()

	out := req.Clone(ctx)
	out.RequestURI = ""
	out.Host = ""
	out.Header.Del("Accept-Encoding")
	out.Header.Del("Connection")
	if out.Method == "" {
		out.Method = http.MethodGet
	}

	start := time.Now()
	resp, err := r.transport.Do(out)
	if err != nil {
		metrics.RecordFetch("error", time.Since(start))
		return nil, &model.TransportError{Key: key, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxBodyBytes+1))
	if err != nil {
		metrics.RecordFetch("error", time.Since(start))
		return nil, &model.TransportError{Key: key, Timeout: isTimeout(ctx, err), Err: err}
	}
	if int64(len(body)) > r.config.MaxBodyBytes {
		metrics.RecordFetch("too_large", time.Since(start))
		return nil, &model.TransportError{Key: key, Err: fmt.Errorf("body exceeds %d bytes", r.config.MaxBodyBytes)}
	}
	metrics.RecordFetch("ok", time.Since(start))

	return &model.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		Source:     model.SourceNetwork,
	}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// lookup reads the cache. Read failures are misses.
func (r *CacheRouter) lookup(ctx context.Context, generation string, key model.RequestKey, source model.ResponseSource) *model.Response {
	if generation == "" {
		return nil
	}
	entry, err := r.store.Get(ctx, generation, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithFields(log.Fields{"component": "CacheRouter", "key": key.String()}).
				Warnf("cache read failed, treating as miss: %v", err)
		}
		return nil
	}
	return entry.Response(source)
}

func (r *CacheRouter) shell(ctx context.Context, generation string) *model.Response {
	if r.config.AppOrigin == nil {
		return nil
	}
	for _, p := range r.config.ShellPaths {
		u := r.config.AppOrigin.ResolveReference(&url.URL{Path: p})
		if resp := r.lookup(ctx, generation, model.NewRequestKey(http.MethodGet, u), model.SourceShell); resp != nil {
			return resp
		}
	}
	return nil
}

// remember writes a successful GET response through to the generation that
// was current when the request was issued.
func (r *CacheRouter) remember(ctx context.Context, rc routeContext, resp *model.Response) {
	if m := rc.req.Method; rc.generation == "" || (m != "" && m != http.MethodGet) {
		return
	}
	entry := model.EntryFromResponse(rc.key, resp, rc.issuedAt)
	err := r.store.Put(context.WithoutCancel(ctx), rc.generation, rc.key, entry)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleWrite), errors.Is(err, cache.ErrGenerationEvicted):
		rc.logger().Debugf("cache write skipped: %v", err)
	default:
		rc.logger().Warnf("cache write failed: %v", err)
	}
}

// resolve makes relative request URLs absolute against the app origin.
func (r *CacheRouter) resolve(req *http.Request) *http.Request {
	if req.URL.IsAbs() || r.config.AppOrigin == nil {
		return req
	}
	out := req.Clone(req.Context())
	out.URL = r.config.AppOrigin.ResolveReference(req.URL)
	return out
}

// Precache fetches every manifest path from the app origin and stores it in
// generation. Any failure fails the whole install.
func (r *CacheRouter) Precache(ctx context.Context, generation string, manifest []string) error {
	if r.config.AppOrigin == nil {
		return errors.New("precache: app origin is not configured")
	}
	issuedAt := r.now()
	p := pool.New().WithMaxGoroutines(r.config.PrecacheConcurrency).WithContext(ctx).WithCancelOnError()

	for _, path := range manifest {
		p.Go(func(ctx context.Context) error {
			ref, err := url.Parse(path)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			u := r.config.AppOrigin.ResolveReference(ref)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			key := model.NewRequestKey(http.MethodGet, u)

			resp, err := r.fetch(ctx, req, key)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			if !resp.OK() {
				return fmt.Errorf("precache %s: upstream status %d", path, resp.StatusCode)
			}
			if err := r.store.Put(ctx, generation, key, model.EntryFromResponse(key, resp, issuedAt)); err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"component": "CacheRouter", "generation": generation}).
		Infof("precached %d resources", len(manifest))
	return nil
}
