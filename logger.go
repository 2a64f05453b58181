package hermes

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// Logger is what every component reports progress through.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// defaultLogger writes to stdout and a dated file under the log directory.
type defaultLogger struct {
	logger    *log.Logger
	directory string
	cloud     *logging.Logger
	client    *logging.Client
}

// newDefaultLogger creates a new instance of defaultLogger.
func newDefaultLogger(config *configService, name string) *defaultLogger {
	currentDate := time.Now().Format("2006-01-02")
	directory := filepath.Join(config.EnvString("LOG_DIR", filepath.Join("storage", "logs")), name)
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logFilePath := filepath.Join(directory, currentDate+"_application.log")
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	multiWriter := io.MultiWriter(file, os.Stdout)

	l := &defaultLogger{
		logger:    log.New(multiWriter, "⏱️ ", log.LstdFlags),
		directory: directory,
	}
	if config.GetBool("GCP_LOGGING") {
		if err := l.attachCloudLogging(config, name); err != nil {
			l.Error("Cloud logging disabled: %v", err)
		}
	}
	return l
}

func (l *defaultLogger) attachCloudLogging(config *configService, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	projectID := config.GetString("PROJECT_ID")
	if projectID == "" {
		id, err := metadata.ProjectID()
		if err != nil {
			return fmt.Errorf("failed to get project ID: %w", err)
		}
		projectID = id
	}

	var opts []option.ClientOption
	if path := config.GetString("GCP_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := logging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return fmt.Errorf("failed to create logging client: %w", err)
	}
	l.client = client
	l.cloud = client.Logger(name)
	return nil
}

func (l *defaultLogger) mirror(severity logging.Severity, format string, args ...interface{}) {
	if l.cloud == nil {
		return
	}
	l.cloud.Log(logging.Entry{Severity: severity, Payload: fmt.Sprintf(format, args...)})
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.logger.Printf("📢 INFO: "+format, args...)
	l.mirror(logging.Info, format, args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	l.logger.Printf("⚠️ WARN: "+format, args...)
	l.mirror(logging.Warning, format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.logger.Printf("🛑 ERROR: "+format, args...)
	l.mirror(logging.Error, format, args...)
}

func (l *defaultLogger) Summary(format string, args ...interface{}) {
	l.logger.Printf("📊 SUMMARY: "+format, args...)
	l.mirror(logging.Notice, format, args...)
}

func (l *defaultLogger) Fatal(format string, args ...interface{}) {
	l.mirror(logging.Critical, format, args...)
	l.Close()
	l.logger.Fatalf("🚨 FATAL: "+format, args...)
}

// Html logs msg and keeps the page markup next to the log for later inspection.
func (l *defaultLogger) Html(html, name, msg string) {
	l.Error("%s", msg)
	if err := writePageContentToFile(filepath.Join(l.directory, "html"), html, name, msg); err != nil {
		l.logger.Printf("⚛️ HTML: %v", err)
	}
}

// Close flushes the cloud mirror, if any.
func (l *defaultLogger) Close() {
	if l.client == nil {
		return
	}
	if err := l.client.Close(); err != nil {
		l.logger.Printf("🛑 ERROR: closing cloud logging: %v", err)
	}
	l.client = nil
	l.cloud = nil
}

// htmlDumper is implemented by loggers able to keep page snapshots.
type htmlDumper interface {
	Html(html, name, msg string)
}

func writePageContentToFile(directory, html, name, msg string) error {
	if html == "" {
		html = "No Page Content Found"
	}
	html = strings.TrimSpace(msg) + "\n" + html
	html = fmt.Sprintf("<!-- Time: %v \n Name: %s -->\n%s", time.Now(), name, html)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return err
	}
	file, err := os.Create(filepath.Join(directory, generateFilename(name, "html")))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(html)
	return err
}
