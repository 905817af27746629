package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"warehouse-system/internal/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 3 * time.Second
)

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Critical  bool      `json:"critical"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Report struct {
	Service    string                     `json:"service"`
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Uptime     int64                      `json:"uptime_seconds"`
	Timestamp  time.Time                  `json:"timestamp"`
}

type component struct {
	name     string
	critical bool
	check    CheckFunc
}

// Checker checks the service's dependencies. A failing critical dependency
// makes the service unhealthy, any other failure only degrades it. The same
// result drives the gRPC health service.
type Checker struct {
	service    string
	components []component
	grpc       *health.Server
	startTime  time.Time
}

func NewChecker(service string) *Checker {
	return &Checker{
		service:   service,
		grpc:      health.NewServer(),
		startTime: time.Now(),
	}
}

func (c *Checker) Register(name string, critical bool, check CheckFunc) {
	c.components = append(c.components, component{name: name, critical: critical, check: check})
}

// Components lists the registered dependency names.
func (c *Checker) Components() []string {
	names := make([]string, len(c.components))
	for i, comp := range c.components {
		names[i] = comp.name
	}
	sort.Strings(names)
	return names
}

func (c *Checker) GRPCServer() *health.Server {
	return c.grpc
}

func checkComponent(ctx context.Context, comp component) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	result := ComponentHealth{Name: comp.name, Critical: comp.critical, Status: StatusHealthy}
	if err := comp.check(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	result.LatencyMS = time.Since(start).Milliseconds()
	result.Timestamp = time.Now()
	return result
}

// Check runs every component check concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Service:    c.service,
		Status:     StatusHealthy,
		Components: make(map[string]ComponentHealth, len(c.components)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, comp := range c.components {
		wg.Add(1)
		go func(comp component) {
			defer wg.Done()
			result := checkComponent(ctx, comp)
			if result.Status != StatusHealthy {
				logger.Warn(ctx).Str("component", comp.name).Str("error", result.Error).Msg("health check failed")
			}
			mu.Lock()
			report.Components[comp.name] = result
			mu.Unlock()
		}(comp)
	}
	wg.Wait()

	for _, result := range report.Components {
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			report.Status = StatusUnhealthy
			break
		}
		report.Status = StatusDegraded
	}
	report.Uptime = int64(time.Since(c.startTime).Seconds())
	report.Timestamp = time.Now()

	c.publish(report)
	return report
}

func (c *Checker) publish(report Report) {
	status := healthpb.HealthCheckResponse_SERVING
	if report.Status == StatusUnhealthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", status)
	c.grpc.SetServingStatus(c.service, status)
}

// Watch re-runs Check every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
