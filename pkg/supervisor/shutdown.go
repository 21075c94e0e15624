package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/logging"
	"github.com/core-tools/hsu-gateway/pkg/process"
)

type signalFunc func(pid int) error

// shutdownController stops a single instance: graceful signal first, then
// a forced kill once the escalation period has passed.
type shutdownController struct {
	inst       *instance
	escalation time.Duration
	signal     signalFunc
	kill       signalFunc
	logger     logging.Logger

	once sync.Once
}

func newShutdownController(inst *instance, escalation time.Duration, logger logging.Logger) *shutdownController {
	return &shutdownController{
		inst:       inst,
		escalation: escalation,
		signal:     process.SendTerminationSignal,
		kill:       process.KillProcessGroup,
		logger:     logger,
	}
}

// begin sends the graceful signal and arms escalation without waiting.
// Only the first call has any effect, and none once the process exited.
func (c *shutdownController) begin() {
	if c.inst.hasExited() {
		return
	}
	c.once.Do(func() {
		inst := c.inst
		inst.markStopRequested()
		if !inst.transition(ProcessStateStopping) {
			return
		}

		c.logger.Infof("Stopping gateway, id: %s, pid: %d", inst.id, inst.pid)
		if err := c.signal(inst.pid); err != nil {
			c.logger.Warnf("Failed to send termination signal, killing, id: %s, pid: %d, error: %v", inst.id, inst.pid, err)
			c.forceKill()
			return
		}

		go func() {
			timer := time.NewTimer(c.escalation)
			defer timer.Stop()
			select {
			case <-inst.exited:
			case <-timer.C:
				c.logger.Warnf("Gateway did not exit within %v, killing, id: %s, pid: %d", c.escalation, inst.id, inst.pid)
				c.forceKill()
			}
		}()
	})
}

// stop begins shutdown and blocks until the process has exited. When ctx
// ends first the process is killed immediately and still waited for.
func (c *shutdownController) stop(ctx context.Context) {
	c.begin()
	select {
	case <-c.inst.exited:
	case <-ctx.Done():
		c.logger.Warnf("Stop cancelled, killing gateway, id: %s, pid: %d", c.inst.id, c.inst.pid)
		c.forceKill()
		<-c.inst.exited
	}
}

func (c *shutdownController) forceKill() {
	if err := c.kill(c.inst.pid); err != nil {
		c.logger.Errorf("Failed to kill gateway, id: %s, pid: %d, error: %v", c.inst.id, c.inst.pid, err)
	}
}
