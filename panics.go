package saga

import (
	"fmt"
	"runtime"
	"strings"
)

// panicError converts a recovered panic value into an error carrying a
// cleaned stack trace, so a panicking handler follows the same rollback path
// as one returning an error.
func panicError(recovered any) error {
	fullStack := make([]byte, 8096)
	n := runtime.Stack(fullStack, false)
	stack := cleanStackTrace(fullStack[:n])

	if err, ok := recovered.(error); ok {
		return fmt.Errorf("handler panic: %w\n%s", err, stack)
	}
	return fmt.Errorf("handler panic: %v\n%s", recovered, stack)
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	// we find the index after the panic line
	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// then remove everything before it
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		// remove the panic() call line & file reference line
		// panic({0x101fc1100?, 0x14000817248?})
		//         ./go/src/runtime/panic.go:785 +0x124
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}
