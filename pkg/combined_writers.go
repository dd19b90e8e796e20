package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter writes the same payload to all given writers.
// Used to tee logs to a file and stdout.
type CombinedWriter struct {
	writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		writers: writers,
	}
}

func (cw *CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.writers {
		written, writeErr := w.Write(p)
		if writeErr != nil {
			err = multierr.Append(err, writeErr)
			continue
		}
		if written > n {
			n = written
		}
	}
	return n, err
}
