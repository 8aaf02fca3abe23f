package request

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func testPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return payload
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestDownloadStream(t *testing.T) {
	payload := testPayload(96 << 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	tempPath := filepath.Join(t.TempDir(), "file.part")
	client := &Client{}
	written, md5Hash, err := client.DownloadStream(&DownloadArgs{
		Url:      server.URL,
		TempPath: tempPath,
	})
	if err != nil {
		t.Fatalf("DownloadStream failed: %v", err)
	}
	if written != int64(len(payload)) {
		t.Errorf("written = %d, expected %d", written, len(payload))
	}
	if md5Hash != md5Hex(payload) {
		t.Errorf("md5 = %s, expected %s", md5Hash, md5Hex(payload))
	}
	onDisk, err := os.ReadFile(tempPath)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(onDisk) != string(payload) {
		t.Error("bytes on disk differ from the served payload")
	}
}

func TestDownloadStreamRescuesCompleteBody(t *testing.T) {
	payload := testPayload(32 << 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// declare more bytes than are sent so the client sees the
		// connection drop right at the end of the stream
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)+10))
		w.Write(payload)
	}))
	defer server.Close()

	tempPath := filepath.Join(t.TempDir(), "file.part")
	client := &Client{}
	written, md5Hash, err := client.DownloadStream(&DownloadArgs{
		Url:          server.URL,
		TempPath:     tempPath,
		DeclaredSize: int64(len(payload)),
	})
	if err != nil {
		t.Fatalf("expected the download to be rescued, got %v", err)
	}
	if written != int64(len(payload)) {
		t.Errorf("written = %d, expected %d", written, len(payload))
	}
	if md5Hash != md5Hex(payload) {
		t.Errorf("md5 = %s, expected %s", md5Hash, md5Hex(payload))
	}
}

func TestDownloadStreamShortBodyFails(t *testing.T) {
	payload := testPayload(16 << 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	tempPath := filepath.Join(t.TempDir(), "file.part")
	client := &Client{}
	_, _, err := client.DownloadStream(&DownloadArgs{
		Url:          server.URL,
		TempPath:     tempPath,
		DeclaredSize: int64(len(payload)) + 100,
	})
	if err == nil {
		t.Fatal("expected an incomplete download error")
	}
	if !IsRetryable(err) {
		t.Errorf("incomplete download should be retryable, got %v", err)
	}
}

func TestHashFile(t *testing.T) {
	payload := testPayload(4 << 10)
	path := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(path, payload, 0666); err != nil {
		t.Fatal(err)
	}
	md5Hash, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if md5Hash != md5Hex(payload) {
		t.Errorf("md5 = %s, expected %s", md5Hash, md5Hex(payload))
	}
}
