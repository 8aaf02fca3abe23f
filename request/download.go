package request

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
	"github.com/schollz/progressbar/v3"
)

// ErrSkipped is returned when the user pressed "skip file" while the
// download was running.
var ErrSkipped = errors.New("file skipped by user")

const streamChunkSize = 1 << 20 // 1 MiB

type DownloadArgs struct {
	Url          string
	TempPath     string
	DeclaredSize int64
	Headers      map[string]string
	Tokens       *utils.Tokens

	// ProgressLabel enables a byte progress bar when non-empty.
	ProgressLabel string
}

func newProgressBar(size int64, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		size,
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(250000000), // ns, coalesce redraws
	)
}

// HashFile returns the hex MD5 of the file at the given path.
func HashFile(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf(
			"error %d: failed to open %s for hashing, more info => %v",
			utils.OS_ERROR,
			filePath,
			err,
		)
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf(
			"error %d: failed to hash %s, more info => %v",
			utils.OS_ERROR,
			filePath,
			err,
		)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func copyWithCheckpoints(dst io.Writer, src io.Reader, hasher hash.Hash, tokens *utils.Tokens, bar *progressbar.ProgressBar) (int64, error) {
	buf := make([]byte, streamChunkSize)
	var written int64
	for {
		if tokens != nil {
			if tokens.SkipRequested() {
				return written, ErrSkipped
			}
			if err := tokens.Checkpoint(); err != nil {
				return written, err
			}
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf(
					"error %d: failed to write to disk, more info => %v",
					utils.OS_ERROR,
					writeErr,
				)
			}
			hasher.Write(buf[:n])
			written += int64(n)
			if bar != nil {
				bar.Add(n)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// DownloadStream fetches the whole body in 1 MiB chunks into the temp
// path, computing the MD5 incrementally. If the connection drops right
// at the end of the stream but the on-disk size matches the declared
// size, the download is rescued and rehashed from disk.
//
// Returns the byte count and hex MD5 of the downloaded content.
func (c *Client) DownloadStream(args *DownloadArgs) (int64, string, error) {
	if args.Tokens != nil {
		if err := args.Tokens.Checkpoint(); err != nil {
			return 0, "", err
		}
	}

	res, err := c.GetStream(context.Background(), args.Url, args.Headers)
	if err != nil {
		return 0, "", err
	}
	defer res.Body.Close()

	f, err := os.Create(args.TempPath)
	if err != nil {
		return 0, "", fmt.Errorf(
			"error %d: failed to create %s, more info => %v",
			utils.OS_ERROR,
			args.TempPath,
			err,
		)
	}
	defer f.Close()

	var bar *progressbar.ProgressBar
	if args.ProgressLabel != "" {
		size := args.DeclaredSize
		if size <= 0 {
			size = res.ContentLength
		}
		bar = newProgressBar(size, args.ProgressLabel)
		defer bar.Finish()
	}

	hasher := md5.New()
	written, err := copyWithCheckpoints(f, res.Body, hasher, args.Tokens, bar)
	if err != nil {
		if IsIncompleteRead(err) && args.DeclaredSize > 0 && written == args.DeclaredSize {
			// The server sent the full body but closed the connection
			// badly; the bytes on disk are complete.
			f.Close()
			rescuedHash, hashErr := HashFile(args.TempPath)
			if hashErr != nil {
				return written, "", hashErr
			}
			return written, rescuedHash, nil
		}
		return written, "", err
	}

	if args.DeclaredSize > 0 && written != args.DeclaredSize {
		return written, "", &NetworkError{
			Url: args.Url,
			Err: fmt.Errorf(
				"error %d: incomplete download, got %d of %d bytes",
				utils.DOWNLOAD_ERROR,
				written,
				args.DeclaredSize,
			),
		}
	}
	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}
