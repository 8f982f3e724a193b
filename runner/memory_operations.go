package runner

import (
	"fmt"

	"github.com/notargets/clmatvec/device"
)

// AllocateInput creates a read-only buffer of sizeBytes and uploads host
// into it at creation
func AllocateInput(ctx device.Context, host []float32, sizeBytes int) (device.Buffer, error) {
	if sizeBytes <= 0 || sizeBytes != len(host)*device.SizeOfFloat32 {
		return nil, device.Errorf(device.InvalidInput, "allocate input",
			"%d host elements do not fill %d bytes", len(host), sizeBytes)
	}
	buf, err := ctx.CreateBuffer(device.ReadOnly, sizeBytes, host)
	if err == nil && buf == nil {
		err = fmt.Errorf("device layer returned no buffer")
	}
	if err != nil {
		return nil, device.Wrap(device.BufferAllocationFailed, fmt.Sprintf("allocate %d-byte input", sizeBytes), err)
	}
	return buf, nil
}

// AllocateOutput creates an uninitialized write-only buffer of sizeBytes
func AllocateOutput(ctx device.Context, sizeBytes int) (device.Buffer, error) {
	if sizeBytes <= 0 || sizeBytes%device.SizeOfFloat32 != 0 {
		return nil, device.Errorf(device.InvalidInput, "allocate output", "invalid size %d bytes", sizeBytes)
	}
	buf, err := ctx.CreateBuffer(device.WriteOnly, sizeBytes, nil)
	if err == nil && buf == nil {
		err = fmt.Errorf("device layer returned no buffer")
	}
	if err != nil {
		return nil, device.Wrap(device.BufferAllocationFailed, fmt.Sprintf("allocate %d-byte output", sizeBytes), err)
	}
	return buf, nil
}

// ReadBack copies the first sizeBytes of buf into a new host slice. It
// blocks until every operation enqueued on queue before it has completed.
func ReadBack(queue device.Queue, buf device.Buffer, sizeBytes int) ([]float32, error) {
	if buf == nil {
		return nil, device.Errorf(device.ReadBackFailed, "read back", "nil buffer")
	}
	if sizeBytes <= 0 || sizeBytes%device.SizeOfFloat32 != 0 || sizeBytes > buf.Size() {
		return nil, device.Errorf(device.InvalidInput, "read back",
			"cannot read %d bytes from a %d-byte buffer", sizeBytes, buf.Size())
	}
	host := make([]float32, sizeBytes/device.SizeOfFloat32)
	if err := queue.ReadBuffer(buf, host); err != nil {
		return nil, device.Wrap(device.ReadBackFailed, "blocking read", err)
	}
	return host, nil
}
