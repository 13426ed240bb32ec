package transport

import (
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// CommandSender delivers power commands to physical components and reports
// acknowledgments. Implementations live in infra; the distributor never
// retries through this interface, it records failures per component instead.
type CommandSender interface {
	// SendCommand sends a power setpoint to the given component and returns
	// the command identifier used to track the acknowledgment.
	SendCommand(componentID string, value quantity.Quantity) (commandID string, err error)

	// WaitForAck waits for an acknowledgment of the given command or until
	// the timeout expires. It returns false without error when the component
	// answered with a negative acknowledgment.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
