package services

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// ErrorReporter forwards operational failures to an error tracker
type ErrorReporter interface {
	Report(ctx context.Context, err error, errorType string, extra map[string]any)
	Breadcrumb(category string, data map[string]any)
}

type sentryReporter struct {
	logger logrus.FieldLogger
}

// NewSentryReporter reports through the globally initialized sentry hub
func NewSentryReporter(logger logrus.FieldLogger) ErrorReporter {
	return &sentryReporter{logger: logger}
}

func (r *sentryReporter) Report(ctx context.Context, err error, errorType string, extra map[string]any) {
	if err == nil {
		return
	}

	log := r.logger.WithField("error_type", errorType).WithError(err)
	for k, v := range extra {
		log = log.WithField(k, v)
	}
	log.Error("Operational failure reported")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		if requestID := utils.RequestIDFrom(ctx); requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		for k, v := range extra {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (r *sentryReporter) Breadcrumb(category string, data map[string]any) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "info",
		Category:  category,
		Data:      data,
		Timestamp: time.Now(),
	})
}

type noopReporter struct{}

// NewNoopReporter discards every report
func NewNoopReporter() ErrorReporter { return noopReporter{} }

func (noopReporter) Report(context.Context, error, string, map[string]any) {}
func (noopReporter) Breadcrumb(string, map[string]any)                      {}
