package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v4"
)

func writeExtractedFile(dest string, file archiver.File) error {
	extractedFilePath := filepath.Join(dest, file.NameInArchive)
	if err := os.MkdirAll(filepath.Dir(extractedFilePath), 0755); err != nil {
		return err
	}

	af, err := file.Open()
	if err != nil {
		return err
	}
	defer af.Close()

	out, err := os.OpenFile(
		extractedFilePath,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		file.Mode(),
	)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, af)
	return err
}

// ExtractFiles extracts all entries of the archive at src into dest.
// A cancelled context removes everything that was already extracted.
func ExtractFiles(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf(
			"error %d: unable to open archive %s",
			OS_ERROR,
			src,
		)
	}
	defer f.Close()

	format, archiveReader, err := archiver.Identify(filepath.Base(src), f)
	if err == archiver.ErrNoMatch {
		return fmt.Errorf(
			"error %d: %s is not a supported archive",
			OS_ERROR,
			src,
		)
	} else if err != nil {
		return err
	}

	var input io.Reader = archiveReader
	if decom, ok := format.(archiver.Decompressor); ok {
		rc, err := decom.OpenReader(archiveReader)
		if err != nil {
			return err
		}
		defer rc.Close()
		input = rc
	}

	ex, ok := format.(archiver.Extractor)
	if !ok {
		return fmt.Errorf(
			"error %d: unable to extract archive %s",
			UNEXPECTED_ERROR,
			src,
		)
	}

	handler := func(ctx context.Context, file archiver.File) error {
		return writeExtractedFile(dest, file)
	}
	if err := ex.Extract(ctx, input, nil, handler); err != nil {
		if err == context.Canceled {
			if rmErr := os.RemoveAll(dest); rmErr != nil {
				LogError(rmErr, "", false, ERROR)
			}
			return err
		}
		return fmt.Errorf(
			"error %d: unable to extract archive %s, more info => %v",
			OS_ERROR,
			src,
			err,
		)
	}
	return nil
}
