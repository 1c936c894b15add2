package scraper

import (
	"fmt"
	"os"
	"strings"
)

// ConsoleLogger prints each line to stderr.
type ConsoleLogger struct{}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, strings.TrimRight(fmt.Sprintf(format, a...), "\n"))
}
