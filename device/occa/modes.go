package occa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notargets/clmatvec/device"
)

// DefaultModes is the probe order: accelerators first, host modes last
var DefaultModes = []string{"CUDA", "HIP", "OpenCL", "Metal", "OpenMP", "Serial"}

// ClassOf maps an OCCA mode to the device class it runs on
func ClassOf(mode string) device.DeviceClass {
	switch strings.ToLower(mode) {
	case "cuda", "hip", "opencl", "metal", "dpcpp":
		return device.ClassGPU
	case "openmp", "serial":
		return device.ClassCPU
	}
	return device.ClassAll
}

// deviceProps is the occa::device property string for device 0 of mode
func deviceProps(mode string) string {
	switch strings.ToLower(mode) {
	case "opencl":
		return fmt.Sprintf(`{"mode": %q, "platform_id": 0, "device_id": 0}`, mode)
	case "cuda", "hip", "metal", "dpcpp":
		return fmt.Sprintf(`{"mode": %q, "device_id": 0}`, mode)
	}
	return fmt.Sprintf(`{"mode": %q}`, mode)
}

// ParseOptions splits OpenCL-style build options into integer defines and
// the remaining compiler flags. Both "-D NAME=V" and "-DNAME=V" are
// accepted; a define without a value is 1.
func ParseOptions(options string) (map[string]int, string, error) {
	defines := make(map[string]int)
	var rest []string
	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, "-D") {
			rest = append(rest, f)
			continue
		}
		def := strings.TrimPrefix(f, "-D")
		if def == "" {
			if i+1 >= len(fields) {
				return nil, "", fmt.Errorf("-D without a macro name")
			}
			i++
			def = fields[i]
		}
		name, value, hasValue := strings.Cut(def, "=")
		if name == "" {
			return nil, "", fmt.Errorf("malformed define %q", def)
		}
		n := 1
		if hasValue {
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, "", fmt.Errorf("define %s: value %q is not an integer", name, value)
			}
			n = v
		}
		defines[name] = n
	}
	return defines, strings.Join(rest, " "), nil
}
