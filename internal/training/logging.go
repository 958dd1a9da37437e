package training

import (
	"io"

	"github.com/abhisek/medipredict/internal/logging"
)

var logger = logging.New("Train:", "#22C55E")

// SetLogger sets an optional destination for training progress.
func SetLogger(w io.Writer, level logging.Level) { logger.SetWriter(w, level) }
