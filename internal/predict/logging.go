package predict

import (
	"io"

	"github.com/abhisek/medipredict/internal/logging"
)

var logger = logging.New("Predict:", "#22D3EE")

// SetLogger sets an optional destination for prediction logs.
func SetLogger(w io.Writer, level logging.Level) { logger.SetWriter(w, level) }
