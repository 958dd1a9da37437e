package bundle

import (
	"io"

	"github.com/abhisek/medipredict/internal/logging"
)

var logger = logging.New("Bundle:", "#A78BFA")

// SetLogger sets an optional destination for bundle logs.
func SetLogger(w io.Writer, level logging.Level) { logger.SetWriter(w, level) }
