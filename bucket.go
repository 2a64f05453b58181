package hermes

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"
)

// uploadToBucket copies local files to GCS_BUCKET under <app>/<job>/.
func (app *Extractor) uploadToBucket(ctx context.Context, job string, files ...string) error {
	startTime := time.Now()
	bucketName := app.Config.GetString("GCS_BUCKET")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := storage.NewClient(ctx, app.gcpOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			app.Logger.Error("Failed to close storage client: %v", err)
		}
	}()

	for _, sourceFileName := range files {
		destination := fmt.Sprintf("%s/%s/%s", app.Name, job, filepath.Base(sourceFileName))
		if err := app.uploadFile(ctx, client.Bucket(bucketName), sourceFileName, destination); err != nil {
			return err
		}
	}
	app.Logger.Info("%d files uploaded to bucket %s. Time taken: %s", len(files), bucketName, time.Since(startTime))
	return nil
}

func (app *Extractor) uploadFile(ctx context.Context, bucket *storage.BucketHandle, sourceFileName, destination string) error {
	file, err := os.Open(sourceFileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", sourceFileName, err)
	}
	defer file.Close()

	writer := bucket.Object(destination).NewWriter(ctx)
	contentType, err := detectContentType(sourceFileName)
	if err != nil {
		app.Logger.Warn("Failed to detect content type for file %s: %v", sourceFileName, err)
		writer.ContentType = "application/octet-stream"
	} else {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return fmt.Errorf("failed to copy %s to bucket: %w", sourceFileName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", destination, err)
	}
	return nil
}

func detectContentType(filePath string) (string, error) {
	mime, err := mimetype.DetectFile(filePath)
	if err != nil {
		return "", err
	}
	return mime.String(), nil
}

// gcpOptions authenticates Google clients with GCP_CREDENTIALS_PATH when set,
// and with application default credentials otherwise.
func (app *Extractor) gcpOptions() []option.ClientOption {
	if path := app.Config.GetString("GCP_CREDENTIALS_PATH"); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
