package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fakestore-offline/internal/metrics"
	"fakestore-offline/internal/model"

	log "github.com/sirupsen/logrus"
)

// Connectivity sources.
const (
	SourcePlatform = "platform"
	SourceProbe    = "probe"
)

// ConnectivityMonitor tracks whether the client currently has connectivity.
// It only observes; it never fetches anything itself.
type ConnectivityMonitor struct {
	mu        sync.RWMutex
	status    model.ConnectivityStatus
	listeners map[uint64]func(model.ConnectivityStatus)
	nextID    uint64
	publisher Publisher
}

// NewConnectivityMonitor creates a monitor with an initial reading.
func NewConnectivityMonitor(online bool, publisher Publisher) *ConnectivityMonitor {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	metrics.SetOnline(online)
	return &ConnectivityMonitor{
		status:    model.ConnectivityStatus{Online: online, Since: time.Now(), Source: SourcePlatform},
		listeners: make(map[uint64]func(model.ConnectivityStatus)),
		publisher: publisher,
	}
}

// Online reports the current reading.
func (m *ConnectivityMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

// Status returns the current reading with the time it last changed.
func (m *ConnectivityMonitor) Status() model.ConnectivityStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// SetOnline records an online/offline notification from the platform.
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.report(online, SourcePlatform)
}

func (m *ConnectivityMonitor) report(online bool, source string) {
	m.mu.Lock()
	if m.status.Online == online {
		m.mu.Unlock()
		return
	}
	m.status = model.ConnectivityStatus{Online: online, Since: time.Now(), Source: source}
	status := m.status
	listeners := make([]func(model.ConnectivityStatus), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	log.WithFields(log.Fields{"component": "ConnectivityMonitor", "source": source}).
		Infof("online=%v", online)
	metrics.SetOnline(online)

	for _, fn := range listeners {
		fn(status)
	}
	m.publisher.Publish(model.HubMessage{Type: model.MessageConnectivity, Data: status})
}

// Subscribe registers fn for status transitions.
func (m *ConnectivityMonitor) Subscribe(fn func(model.ConnectivityStatus)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// ProberConfig holds configuration for the connectivity prober.
type ProberConfig struct {
	// URL is probed with HEAD. Any HTTP answer counts as online.
	URL string
	// Interval between probes.
	Interval time.Duration
	// Timeout for a single probe.
	Timeout time.Duration
}

// ConnectivityProber feeds the monitor from a periodic HEAD probe.
type ConnectivityProber struct {
	monitor   *ConnectivityMonitor
	transport Transport
	config    ProberConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewConnectivityProber creates a prober for monitor.
func NewConnectivityProber(monitor *ConnectivityMonitor, transport Transport, config ProberConfig) *ConnectivityProber {
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return &ConnectivityProber{
		monitor:   monitor,
		transport: transport,
		config:    config,
		stopCh:    make(chan struct{}),
	}
}

// Start begins probing.
func (p *ConnectivityProber) Start() {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = true
	p.ticker = time.NewTicker(p.config.Interval)
	p.mu.Unlock()

	log.WithField("component", "ConnectivityProber").
		Infof("started - interval: %v, url: %s", p.config.Interval, p.config.URL)

	go p.run()
}

func (p *ConnectivityProber) run() {
	p.RunNow(context.Background())
	for {
		select {
		case <-p.ticker.C:
			p.RunNow(context.Background())
		case <-p.stopCh:
			log.WithField("component", "ConnectivityProber").Info("stopped")
			return
		}
	}
}

// RunNow probes once, reports the result to the monitor, and returns it.
func (p *ConnectivityProber) RunNow(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.config.URL, nil)
	if err == nil {
		resp, doErr := p.transport.Do(req)
		if doErr == nil {
			resp.Body.Close()
			online = true
		} else {
			log.WithField("component", "ConnectivityProber").Debugf("probe failed: %v", doErr)
		}
	}

	p.monitor.report(online, SourceProbe)
	return online
}

// Stop stops the prober.
func (p *ConnectivityProber) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.ticker != nil {
			p.ticker.Stop()
		}
		close(p.stopCh)
		p.isRunning = false
	})
}
