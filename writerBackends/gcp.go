package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"layercast/logger"
)

// UploadToGCSWithJSON uploads content to a Google Cloud Storage object using
// a service account key. credentialsJSON may be raw JSON or base64 of it.
func UploadToGCSWithJSON(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	credentialsJSON, err := decodeMaybeBase64(accessInfo["credentialsJSON"])
	if err != nil {
		return err
	}
	bucketName := accessInfo["bucket"]
	objectName := objectKey(accessInfo, "object")
	if bucketName == "" || objectName == "" {
		return fmt.Errorf("missing required accessInfo keys: bucket, object or filename")
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = accessInfo["contentType"]

	if _, err = io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", objectName, bucketName)
	return nil
}

func decodeMaybeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("missing credentialsJSON")
	}
	if s[0] == '{' {
		return []byte(s), nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, fmt.Errorf("credentialsJSON is neither JSON nor base64: %w", err)
		}
	}
	return b, nil
}
