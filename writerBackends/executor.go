package writerbackends

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
)

// Backend types accepted by WriteVideo.
const (
	BackendDirectServe = "directServe"
	BackendS3          = "s3"
	BackendGCS         = "gcs"
	BackendSFTP        = "sftp"
)

// WriteVideo publishes a finished video to one storage backend. accessInfo
// carries the backend credentials plus "filename" and "folder".
func WriteVideo(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) error {
	if accessInfo["contentType"] == "" {
		accessInfo["contentType"] = ContentType(accessInfo["filename"])
	}

	switch backendType {
	case BackendDirectServe:
		err := UploadToDirectServe(ctx, accessInfo, reader)
		if err != nil {
			return fmt.Errorf("failed to upload to direct serve: %w", err)
		}
	case BackendS3:
		err := UploadToS3WithCreds(ctx, accessInfo, reader)
		if err != nil {
			return fmt.Errorf("failed to upload to S3: %w", err)
		}
	case BackendGCS:
		err := UploadToGCSWithJSON(ctx, accessInfo, reader)
		if err != nil {
			return fmt.Errorf("failed to upload to GCS: %w", err)
		}
	case BackendSFTP:
		err := UploadToSFTPWithCreds(ctx, accessInfo, reader)
		if err != nil {
			return fmt.Errorf("failed to upload to SFTP: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend type: %s", backendType)
	}
	return nil
}

// ContentType guesses a MIME type from a file name, defaulting to MP4.
func ContentType(filename string) string {
	switch filepath.Ext(filename) {
	case "", ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// objectKey joins folder and filename with forward slashes for object stores.
func objectKey(accessInfo map[string]string, explicit string) string {
	if k := accessInfo[explicit]; k != "" {
		return k
	}
	if accessInfo["folder"] == "" {
		return accessInfo["filename"]
	}
	return filepath.ToSlash(filepath.Join(accessInfo["folder"], accessInfo["filename"]))
}
