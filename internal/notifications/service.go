package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crate/internal/config"
	"crate/internal/export"
	"crate/internal/services"
)

const userAgent = "crate/notifications"

// Service defines the notification surface used by the CLI.
type Service interface {
	// NotifyBackupFinished reports a finished run. Successful runs are only
	// sent when notifications.on_success is set.
	NotifyBackupFinished(ctx context.Context, report *export.Report, dryRun bool) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		account:   cfg.Discogs.Username,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	account   string
}

func (n *ntfyService) NotifyBackupFinished(ctx context.Context, report *export.Report, dryRun bool) error {
	if report == nil {
		return nil
	}
	var failed []string
	for _, result := range report.Resources {
		if result.Failed() {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Resource, services.Kind(result.Err)))
		}
	}
	if len(failed) == 0 && !n.onSuccess {
		return nil
	}

	duration := report.Duration().Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	label := "Backup"
	if dryRun {
		label = "Dry run"
	}

	if len(failed) == 0 {
		files := 0
		for _, result := range report.Resources {
			files += len(result.Files)
		}
		return n.send(ctx, payload{
			title:   fmt.Sprintf("crate - %s complete", label),
			message: fmt.Sprintf("%s of %s finished in %s: %d resources, %d files", label, n.accountLabel(), duration, len(report.Resources), files),
			tags:    []string{"crate", "backup", "completed"},
		})
	}

	return n.send(ctx, payload{
		title: fmt.Sprintf("crate - %s failed", label),
		message: fmt.Sprintf("%s of %s finished with failures in %s\n%s",
			label, n.accountLabel(), duration, strings.Join(failed, "\n")),
		tags:     []string{"crate", "backup", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "crate - Test",
		message:  "Notification system test",
		tags:     []string{"crate", "test"},
		priority: "low",
	})
}

func (n *ntfyService) accountLabel() string {
	if n.account == "" {
		return "Discogs account"
	}
	return n.account
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBackupFinished(context.Context, *export.Report, bool) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
