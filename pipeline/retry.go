package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// RetryDownloads re-runs failed downloads with their forced filenames
// carried through, so a retried file lands exactly where the first
// attempt would have. Returns the success count and the failures that
// remain.
func (rc *RunContext) RetryDownloads(failed []session.FailedFile) (int, []session.FailedFile) {
	var (
		downloaded int
		remaining  []session.FailedFile
	)
	for _, file := range failed {
		if err := rc.Tokens.Checkpoint(); err != nil {
			remaining = append(remaining, failed[downloaded+len(remaining):]...)
			break
		}
		if rc.retryOne(&file) {
			downloaded++
		} else {
			remaining = append(remaining, file)
		}
	}
	return downloaded, remaining
}

func (rc *RunContext) retryOne(file *session.FailedFile) bool {
	if err := os.MkdirAll(file.TargetFolderPath, 0755); err != nil {
		rc.Queue.Publish(LogEvent{
			Level:   utils.ERROR,
			Message: fmt.Sprintf("retry of %q failed: %v", file.FileName, err),
		})
		return false
	}

	diskName := file.ForcedFilename
	if diskName == "" {
		diskName = file.FileName
	}
	tempPath := utils.TempPartPath(file.TargetFolderPath, utils.RemoveExtFromFilename(diskName))
	_, md5Hash, err := rc.Client.DownloadStream(&request.DownloadArgs{
		Url:           file.FileUrl,
		TempPath:      tempPath,
		Tokens:        rc.Tokens,
		ProgressLabel: diskName,
	})
	if err != nil {
		os.Remove(tempPath)
		if !errors.Is(err, context.Canceled) {
			rc.Queue.Publish(LogEvent{
				Level:   utils.ERROR,
				Message: fmt.Sprintf("retry of %q failed: %v", file.FileName, err),
			})
		}
		return false
	}

	if !rc.Registry.Reserve(md5Hash) {
		os.Remove(tempPath)
		return true // content already saved, nothing left to retry
	}
	finalPath := claimFinalPath(rc.Registry, file.TargetFolderPath, diskName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		rc.Registry.Rollback(md5Hash)
		os.Remove(tempPath)
		return false
	}
	rc.Queue.Publish(FileDownloadedEvent{Entry: session.DownloadedFile{
		DiskFilename:    filepath.Base(finalPath),
		PostId:          file.PostId,
		PostTitle:       file.PostTitle,
		DownloadPath:    finalPath,
		Service:         rc.Source.Service,
		UserId:          rc.Source.UserId,
		ApiOriginalName: file.FileName,
		UploadDate:      "",
		DownloadedAt:    time.Now().Format(time.RFC3339),
	}})
	return true
}
