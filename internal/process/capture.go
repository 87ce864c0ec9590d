package process

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
)

// captureStream appends every line read from r to the store until EOF.
// Lines are not length limited, and a final line without a newline is kept.
// Read errors end the capture quietly; the process is assumed gone.
func captureStream(r io.ReadCloser, serviceID int64, stream logstore.Stream, store *logstore.Store, logger logging.Logger) {
	defer r.Close()

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			store.Append(serviceID, stream, trimLineEnding(line))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Debug("Output capture ended", "service_id", serviceID, "stream", string(stream), "error", err)
			}
			return
		}
	}
}

func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
