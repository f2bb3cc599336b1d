package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultConnectivityURL      = "https://www.google.com"
	defaultConnectivityInterval = 60 * time.Second
	connectivityProbeTimeout    = 5 * time.Second
)

// Connectivity is a snapshot of the last probe.
type Connectivity struct {
	Online    bool
	CheckedAt time.Time
}

// ConnectivityMonitor probes an external URL on an interval and remembers whether it answered.
type ConnectivityMonitor struct {
	client   *resty.Client
	url      string
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	mu       sync.RWMutex
	state    Connectivity
	onOnline []func(ctx context.Context)
}

func NewConnectivityMonitor(url string, interval time.Duration, logger *zap.Logger) *ConnectivityMonitor {
	client := resty.New().
		SetTimeout(connectivityProbeTimeout).
		SetRetryCount(0)
	return NewConnectivityMonitorWithClient(client, url, interval, logger)
}

func NewConnectivityMonitorWithClient(client *resty.Client, url string, interval time.Duration, logger *zap.Logger) *ConnectivityMonitor {
	if strings.TrimSpace(url) == "" {
		url = DefaultConnectivityURL
	}
	if interval <= 0 {
		interval = defaultConnectivityInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConnectivityMonitor{
		client:   client,
		url:      url,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		// assume online until the first probe says otherwise
		state: Connectivity{Online: true},
	}
}

func (m *ConnectivityMonitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// OnOnline registers fn to run whenever the monitor sees an offline to online transition.
func (m *ConnectivityMonitor) OnOnline(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

func (m *ConnectivityMonitor) Snapshot() Connectivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Start probes immediately and then on every interval until ctx is done.
func (m *ConnectivityMonitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe, updates the snapshot and fires the online callbacks on recovery.
func (m *ConnectivityMonitor) Check(ctx context.Context) Connectivity {
	err := m.probe(ctx)
	online := err == nil

	m.mu.Lock()
	wasOnline := m.state.Online
	m.state = Connectivity{Online: online, CheckedAt: m.now().UTC()}
	callbacks := slices.Clone(m.onOnline)
	snapshot := m.state
	m.mu.Unlock()

	m.metrics.SetConnectivity(online)

	switch {
	case wasOnline && !online:
		m.logger.Warn("connectivity lost", zap.String("url", m.url), zap.Error(err))
	case !wasOnline && online:
		m.logger.Info("connectivity restored", zap.String("url", m.url))
		for _, fn := range callbacks {
			fn(ctx)
		}
	}
	return snapshot
}

func (m *ConnectivityMonitor) probe(ctx context.Context) error {
	resp, err := m.client.R().SetContext(ctx).Head(m.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("connectivity probe returned status %d", resp.StatusCode())
	}
	return nil
}
