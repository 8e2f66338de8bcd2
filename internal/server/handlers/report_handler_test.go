package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/service/reporting"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

type stubReporter struct {
	Reporter
	runErr error
	token  string
}

func (s *stubReporter) Today() string { return "2024-05-01" }

func (s *stubReporter) RunDaily(_ context.Context, token, date string) (models.DailyQueueReport, error) {
	s.token = token
	if s.runErr != nil && !errors.Is(s.runErr, reporting.ErrDelivery) {
		return models.DailyQueueReport{}, s.runErr
	}
	return models.DailyQueueReport{Date: date, TotalBookings: 2}, s.runErr
}

func runReport(t *testing.T, reporter *stubReporter) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/reports/daily", func(c *gin.Context) {
		c.Set("session", &models.Session{ID: "sid", AccessToken: "upstream-token"})
		c.Next()
	}, NewReportHandler(reporter, nil).RunDaily)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/daily?date=2024-05-01", nil))
	return rec
}

func TestRunDailyForwardsSessionToken(t *testing.T) {
	reporter := &stubReporter{}
	rec := runReport(t, reporter)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", rec.Code, rec.Body.String())
	}
	if reporter.token != "upstream-token" {
		t.Fatalf("report ran with token %q", reporter.token)
	}
}

func TestRunDailyDeliveryFailureIncludesReport(t *testing.T) {
	reporter := &stubReporter{runErr: fmt.Errorf("%w: %w", reporting.ErrDelivery, errors.New("mongo down"))}
	rec := runReport(t, reporter)

	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), `"date":"2024-05-01"`) {
		t.Fatalf("expected 502 with the built report, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRunDailyBuildFailureOmitsReport(t *testing.T) {
	reporter := &stubReporter{runErr: fmt.Errorf("list bookings for 2024-05-01: %w", &backend.APIError{
		StatusCode: http.StatusUnauthorized,
		Body:       []byte(`{"message":"unauthorized"}`),
	})}
	rec := runReport(t, reporter)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected upstream 401, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `"report"`) {
		t.Fatalf("failed build must not return a report: %s", rec.Body.String())
	}
}
