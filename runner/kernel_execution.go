package runner

import (
	"fmt"

	"github.com/notargets/clmatvec/device"
)

// Dispatch binds buffers to kernel in slice order (argument i is
// buffers[i]) and enqueues a one-dimensional launch of workItems work-items
// with the local size left to the device. It does not wait for the launch;
// a later blocking read on the same queue does.
func Dispatch(queue device.Queue, kernel device.Kernel, buffers []device.Buffer, workItems int) error {
	for i, buf := range buffers {
		if buf == nil {
			return device.Errorf(device.ArgumentBindingFailed, fmt.Sprintf("bind argument %d", i), "nil buffer")
		}
		if err := kernel.SetArg(i, buf); err != nil {
			return device.Wrap(device.ArgumentBindingFailed,
				fmt.Sprintf("bind argument %d of %s", i, kernel.Name()), err)
		}
	}
	if workItems <= 0 {
		return device.Errorf(device.EnqueueFailed, "enqueue "+kernel.Name(), "invalid work-item count %d", workItems)
	}
	if err := queue.EnqueueKernel(kernel, workItems); err != nil {
		return device.Wrap(device.EnqueueFailed, fmt.Sprintf("enqueue %s over %d work-items", kernel.Name(), workItems), err)
	}
	return nil
}
