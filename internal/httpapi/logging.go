package httpapi

import (
	"io"

	"github.com/abhisek/medipredict/internal/logging"
)

var logger = logging.New("HTTP:", "#14B8A6")

// SetLogger enables package logging to w.
func SetLogger(w io.Writer, level logging.Level) { logger.SetWriter(w, level) }
