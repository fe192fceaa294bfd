package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/neighbors/codec"
	"github.com/hupe1980/neighbors/resource"
	"github.com/hupe1980/neighbors/xyz"
)

// readFrame reads the first XYZ frame of path, or of stdin for "-".
// Compression is inferred from the file suffix.
func readFrame(ctx context.Context, path string, stdin io.Reader, rc *resource.Controller) (*xyz.Frame, error) {
	var src io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	zr, err := codec.NewReader(resource.NewRateLimitedReader(ctx, src, rc), codec.CompressionForPath(path))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	frame, err := xyz.Read(zr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
// Compression is inferred from the file suffix.
func writeOutput(ctx context.Context, path string, stdout io.Writer, rc *resource.Controller, data []byte) (err error) {
	dst := stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return cerr
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		dst = f
	}

	zw, err := codec.NewWriter(resource.NewRateLimitedWriter(ctx, dst, rc), codec.CompressionForPath(path))
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}
