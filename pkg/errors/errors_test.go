package errors

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeDatabaseError, "班次写入失败")

	if !strings.Contains(err.Error(), "DATABASE_ERROR") || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error string should carry code and cause, got %q", err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the original cause")
	}
}

func TestCodeHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeWorkflowConflict, http.StatusConflict},
		{CodeStaleAssignment, http.StatusConflict},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeDatabaseError, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := GetHTTPStatus(New(c.code, "x")); got != c.want {
			t.Errorf("Expected status %d for %s, got %d", c.want, c.code, got)
		}
	}
}

func TestStaleAssignment(t *testing.T) {
	err := StaleAssignment("护士A", "2026-03-10", "并发批次已将当月班次推至 21，达到上限 20")

	if err.Code != CodeStaleAssignment {
		t.Errorf("Expected STALE_ASSIGNMENT code, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "已过期") || !strings.Contains(err.Message, "护士A") {
		t.Errorf("Message should name the employee and the expiry, got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("Expected 409 for stale assignment, got %d", err.HTTPStatus)
	}
}

func TestIsAndGetCode(t *testing.T) {
	err := WorkflowConflict("req-1", "APPROVED")

	if !Is(err, CodeWorkflowConflict) {
		t.Error("Is should match the workflow conflict code")
	}
	if Is(fmt.Errorf("plain"), CodeWorkflowConflict) {
		t.Error("Is should not match a plain error")
	}
	if GetCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("GetCode should fall back to UNKNOWN for plain errors")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("Empty collection should report no errors")
	}

	ve.Add("date", "缺少日期")
	ve.Add("location", "缺少科室")

	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail {
		t.Errorf("Expected VALIDATION_FAILED, got %s", appErr.Code)
	}
	if len(appErr.Fields) != 2 {
		t.Errorf("Expected 2 field entries, got %d", len(appErr.Fields))
	}
}
