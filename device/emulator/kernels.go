package emulator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/notargets/clmatvec/device"
)

// KernelFunc runs one work-item. args are the bound buffers in argument
// order; defines are the -D values the program was compiled with.
type KernelFunc func(id int, args [][]float32, defines map[string]int) error

// MatVec computes one row of a row-major matrix times a vector:
// args = (matrix, vector, result), work-item id = output row.
func MatVec(id int, args [][]float32, defines map[string]int) error {
	if len(args) != 3 {
		return fmt.Errorf("matvec_mult takes 3 arguments, got %d", len(args))
	}
	matrix, vector, result := args[0], args[1], args[2]
	cols, ok := defines["MATVEC_COLS"]
	if !ok {
		cols = len(vector)
	}
	if cols > len(vector) || (id+1)*cols > len(matrix) || id >= len(result) {
		return fmt.Errorf("row %d is out of range for %d columns", id, cols)
	}
	var sum float32
	row := matrix[id*cols : (id+1)*cols]
	for k, m := range row {
		sum += m * vector[k]
	}
	result[id] = sum
	return nil
}

var (
	entryPointRE = regexp.MustCompile(`(?:__kernel|\bkernel|@kernel)\s+void\s+([A-Za-z_]\w*)\s*\(([^)]*)\)`)
	defineRE     = regexp.MustCompile(`-D\s*([A-Za-z_]\w*)(?:=(\S+))?`)
)

// scanEntryPoints returns each declared kernel with its parameter count
func scanEntryPoints(source string) (map[string]int, error) {
	matches := entryPointRE.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil, device.Errorf(device.CompilationFailed, "compile", "source declares no kernel")
	}
	entries := make(map[string]int, len(matches))
	for _, m := range matches {
		params := strings.TrimSpace(m[2])
		arity := 0
		if params != "" && params != "void" {
			arity = strings.Count(params, ",") + 1
		}
		entries[m[1]] = arity
	}
	return entries, nil
}

func parseDefines(options string) (map[string]int, error) {
	defines := make(map[string]int)
	for _, m := range defineRE.FindAllStringSubmatch(options, -1) {
		if m[2] == "" {
			defines[m[1]] = 1
			continue
		}
		v, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, device.Errorf(device.CompilationFailed, "compile", "define %s=%s is not an integer", m[1], m[2])
		}
		defines[m[1]] = v
	}
	return defines, nil
}
