package request

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

const (
	chunkWriteSize  = 256 << 10 // 256 KiB per write iteration
	chunkRetryDelay = 2 * time.Second
	progressTick    = 250 * time.Millisecond
)

// ChunkStatus tracks one byte range of a multi-part download.
type ChunkStatus struct {
	Downloaded int64
	Total      int64
	Active     bool
	SpeedBps   float64
}

type MultipartArgs struct {
	Url      string
	TempPath string
	Size     int64
	Parts    int
	Headers  map[string]string
	Tokens   *utils.Tokens

	// ProgressLabel enables a coalesced byte progress bar when non-empty.
	ProgressLabel string
}

type byteRange struct {
	start int64
	end   int64 // inclusive
}

// PartitionRanges splits [0, size) into n contiguous ranges; the last
// range absorbs the remainder.
func PartitionRanges(size int64, n int) [][2]int64 {
	ranges := make([][2]int64, 0, n)
	chunkSize := size / int64(n)
	for i := 0; i < n; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if i == n-1 {
			end = size - 1
		}
		ranges = append(ranges, [2]int64{start, end})
	}
	return ranges
}

type chunkTracker struct {
	mu     sync.Mutex
	status []ChunkStatus
}

func (t *chunkTracker) update(i int, downloaded int64, active bool) {
	t.mu.Lock()
	t.status[i].Downloaded = downloaded
	t.status[i].Active = active
	t.mu.Unlock()
}

func (t *chunkTracker) setActive(i int, active bool) {
	t.mu.Lock()
	t.status[i].Active = active
	t.mu.Unlock()
}

func (t *chunkTracker) totals() (downloaded int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.status {
		downloaded += t.status[i].Downloaded
	}
	return downloaded
}

func (t *chunkTracker) setSpeeds(elapsed time.Duration, prev []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.status {
		delta := t.status[i].Downloaded - prev[i]
		prev[i] = t.status[i].Downloaded
		t.status[i].SpeedBps = float64(delta) / elapsed.Seconds()
	}
}

func (c *Client) downloadChunk(args *MultipartArgs, f *os.File, idx int, rng [2]int64, tracker *chunkTracker) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(chunkRetryDelay)
		}

		if err := args.Tokens.Checkpoint(); err != nil {
			return err
		}

		err := c.writeChunk(args, f, idx, rng, tracker)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		// restart the range from scratch on retry
		tracker.update(idx, 0, false)
	}
	return lastErr
}

func (c *Client) writeChunk(args *MultipartArgs, f *os.File, idx int, rng [2]int64, tracker *chunkTracker) error {
	res, err := c.GetRange(context.Background(), args.Url, rng[0], rng[1])
	if err != nil {
		return err
	}
	defer res.Body.Close()

	tracker.update(idx, 0, true)
	defer tracker.setActive(idx, false)

	buf := make([]byte, chunkWriteSize)
	offset := rng[0]
	var written int64
	expected := rng[1] - rng[0] + 1
	for written < expected {
		if args.Tokens.SkipRequested() {
			return ErrSkipped
		}
		if err := args.Tokens.Checkpoint(); err != nil {
			return err
		}

		n, readErr := res.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.WriteAt(buf[:n], offset); writeErr != nil {
				return fmt.Errorf(
					"error %d: failed to write chunk %d at offset %d, more info => %v",
					utils.OS_ERROR,
					idx,
					offset,
					writeErr,
				)
			}
			offset += int64(n)
			written += int64(n)
			tracker.update(idx, written, true)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if written != expected {
		return &NetworkError{
			Url: args.Url,
			Err: fmt.Errorf(
				"error %d: chunk %d incomplete, got %d of %d bytes",
				utils.DOWNLOAD_ERROR,
				idx,
				written,
				expected,
			),
		}
	}
	return nil
}

// DownloadMultipart downloads the file as Parts contiguous byte ranges
// written into a pre-sized temp file. All ranges must succeed and the
// byte total must match the declared size; the MD5 is computed over the
// reassembled file afterwards.
//
// Returns the byte count and hex MD5 of the downloaded content.
func (c *Client) DownloadMultipart(args *MultipartArgs) (int64, string, error) {
	if args.Parts < 2 || args.Size <= 0 {
		panic(
			fmt.Errorf(
				"error %d: invalid multi-part arguments (parts=%d, size=%d)",
				utils.DEV_ERROR,
				args.Parts,
				args.Size,
			),
		)
	}

	f, err := os.OpenFile(args.TempPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return 0, "", fmt.Errorf(
			"error %d: failed to create %s, more info => %v",
			utils.OS_ERROR,
			args.TempPath,
			err,
		)
	}
	defer f.Close()

	if err := f.Truncate(args.Size); err != nil {
		return 0, "", fmt.Errorf(
			"error %d: failed to pre-size %s, more info => %v",
			utils.OS_ERROR,
			args.TempPath,
			err,
		)
	}

	ranges := PartitionRanges(args.Size, args.Parts)
	tracker := &chunkTracker{status: make([]ChunkStatus, args.Parts)}
	for i := range tracker.status {
		tracker.status[i].Total = ranges[i][1] - ranges[i][0] + 1
	}

	stopProgress := make(chan struct{})
	var progressWg sync.WaitGroup
	if args.ProgressLabel != "" {
		progressWg.Add(1)
		go func() {
			defer progressWg.Done()
			bar := newProgressBar(args.Size, args.ProgressLabel)
			defer bar.Finish()

			prev := make([]int64, args.Parts)
			ticker := time.NewTicker(progressTick)
			defer ticker.Stop()
			for {
				select {
				case <-stopProgress:
					return
				case <-ticker.C:
					tracker.setSpeeds(progressTick, prev)
					bar.Set64(tracker.totals())
				}
			}
		}()
	}

	var wg sync.WaitGroup
	errChan := make(chan error, args.Parts)
	for i, rng := range ranges {
		wg.Add(1)
		go func(idx int, rng [2]int64) {
			defer wg.Done()
			if err := c.downloadChunk(args, f, idx, rng, tracker); err != nil {
				errChan <- err
			}
		}(i, rng)
	}
	wg.Wait()
	close(errChan)
	close(stopProgress)
	progressWg.Wait()

	for err := range errChan {
		if err != nil {
			f.Close()
			os.Remove(args.TempPath)
			return tracker.totals(), "", err
		}
	}

	if downloaded := tracker.totals(); downloaded != args.Size {
		f.Close()
		os.Remove(args.TempPath)
		return downloaded, "", &NetworkError{
			Url: args.Url,
			Err: fmt.Errorf(
				"error %d: multi-part download incomplete, got %d of %d bytes",
				utils.DOWNLOAD_ERROR,
				downloaded,
				args.Size,
			),
		}
	}

	f.Close()
	fileHash, err := HashFile(args.TempPath)
	if err != nil {
		return args.Size, "", err
	}
	return args.Size, fileHash, nil
}
