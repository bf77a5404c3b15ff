package email

import (
	"strings"
	"testing"
)

func TestIsConfigured(t *testing.T) {
	if NewService(Config{}).IsConfigured() {
		t.Error("empty config reported as configured")
	}
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "portal@example.com"})
	if !svc.IsConfigured() {
		t.Error("complete config reported as unconfigured")
	}
}

func TestSendFailsWhenUnconfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendHTMLEmail([]string{"a@example.com"}, "s", "<p>hi</p>"); err == nil {
		t.Error("expected error when unconfigured")
	}
}

func TestDecisionTemplate(t *testing.T) {
	approved, err := renderTemplate(decisionEmailTemplate, decisionData{
		OrgName:  "Northstar Assessments Pvt Ltd",
		UserName: "Asha Kumar",
		ExamName: "National Computer-Based Examination 01/2026",
		Approved: true,
	})
	if err != nil {
		t.Fatalf("render approved: %v", err)
	}
	if !strings.Contains(approved, "approved") || !strings.Contains(approved, "Asha Kumar") {
		t.Errorf("approved template missing content: %s", approved)
	}

	rejected, err := renderTemplate(decisionEmailTemplate, decisionData{
		OrgName:  "Northstar Assessments Pvt Ltd",
		UserName: "Asha Kumar",
		ExamName: "National Computer-Based Examination 01/2026",
		Approved: false,
	})
	if err != nil {
		t.Fatalf("render rejected: %v", err)
	}
	if !strings.Contains(rejected, "not been accepted") {
		t.Errorf("rejected template missing content: %s", rejected)
	}
}

func TestWelcomeTemplate(t *testing.T) {
	html, err := renderTemplate(welcomeEmailTemplate, welcomeData{
		OrgName:  "Northstar Assessments Pvt Ltd",
		UserName: "Asha Kumar",
	})
	if err != nil {
		t.Fatalf("render welcome: %v", err)
	}
	if !strings.Contains(html, "Welcome, Asha Kumar") {
		t.Errorf("welcome template missing greeting: %s", html)
	}
}
