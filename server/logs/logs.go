/******************************************************************************
 *
 *  Description :
 *    Package exposes info, warning and error loggers shared by the broker.
 *
 *****************************************************************************/
package logs

import (
	"io"
	"log"
	"os"
)

var (
	// Info is the logger for informational messages.
	Info *log.Logger
	// Warn is the logger for recoverable problems.
	Warn *log.Logger
	// Err is the logger for errors.
	Err *log.Logger
)

func init() {
	// Default loggers so package-level logging works before Init is called,
	// e.g. from tests.
	Init(os.Stderr, log.LstdFlags|log.Lmicroseconds)
}

// Init sets up the loggers with the given sink and flags.
func Init(out io.Writer, flags int) {
	Info = log.New(out, "I", flags)
	Warn = log.New(out, "W", flags)
	Err = log.New(out, "E", flags)
}
