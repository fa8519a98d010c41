package health

import (
	"net/http"
	"sync"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one component.
type Check func() error

// Checker runs registered checks periodically and reports the combined
// result. The message log store is critical; everything else degrades.
type Checker struct {
	checks      map[string]Check
	critical    map[string]bool
	components  map[string]*Component
	checkPeriod time.Duration
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	return &Checker{
		checks:      make(map[string]Check),
		critical:    make(map[string]bool),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		log:         log,
	}
}

// RegisterCheck registers a health check. Critical components take the
// whole service down when they fail; non-critical ones are reported
// but keep the service healthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = check
	c.critical[name] = critical
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "Not checked yet",
	}
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for name, check := range c.checks {
		component := c.components[name]
		component.LastChecked = time.Now()

		if err := check(); err != nil {
			component.Status = StatusDown
			component.Error = err.Error()
			c.log.Error("health check failed", "component", name, "error", err.Error())
			continue
		}

		component.Status = StatusUp
		component.Error = ""
	}
}

// Start begins periodic health checks
func (c *Checker) Start() {
	go func() {
		c.RunChecks()

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()

		for range ticker.C {
			c.RunChecks()
		}
	}()
}

// GetStatus returns a copy of the current component states.
func (c *Checker) GetStatus() map[string]*Component {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[string]*Component, len(c.components))
	for k, v := range c.components {
		componentCopy := *v
		result[k] = &componentCopy
	}

	return result
}

// Healthy returns true if every critical component is up.
func (c *Checker) Healthy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for name, component := range c.components {
		if c.critical[name] && component.Status == StatusDown {
			return false
		}
	}

	return true
}

// Handler serves the combined health report.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if !c.Healthy() {
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		ctx.JSON(code, gin.H{
			"status":     status,
			"timestamp":  time.Now(),
			"components": c.GetStatus(),
		})
	}
}
