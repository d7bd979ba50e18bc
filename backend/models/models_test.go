package models

import "testing"

func TestTargetFormat(t *testing.T) {
	cases := []struct {
		ext    string
		format string
		ok     bool
	}{
		{".doc", "docx", true},
		{".xls", "xlsx", true},
		{".ppt", "pptx", true},
		{".DOC", "docx", true},
		{".pdf", "", false},
		{".docx", "", false},
		{"doc", "", false},
	}

	for _, tc := range cases {
		format, ok := TargetFormat(tc.ext)
		if ok != tc.ok {
			t.Errorf("TargetFormat(%q) ok = %v, want %v", tc.ext, ok, tc.ok)
		}
		if format != tc.format {
			t.Errorf("TargetFormat(%q) = %q, want %q", tc.ext, format, tc.format)
		}
	}
}

func TestDownloadName(t *testing.T) {
	task := &Task{
		OriginalFilename: "quarterly report.doc",
		TargetFormat:     "docx",
	}

	if got := task.DownloadName(); got != "quarterly report.docx" {
		t.Errorf("DownloadName() = %q, want %q", got, "quarterly report.docx")
	}

	// A filename without an extension keeps its full stem
	task = &Task{OriginalFilename: "report", TargetFormat: "docx"}
	if got := task.DownloadName(); got != "report.docx" {
		t.Errorf("DownloadName() = %q, want %q", got, "report.docx")
	}
}

func TestIsTerminal(t *testing.T) {
	task := &Task{Status: TaskStatusProcessing}
	if task.IsTerminal() {
		t.Error("processing task should not be terminal")
	}

	task.Status = TaskStatusCompleted
	if !task.IsTerminal() {
		t.Error("completed task should be terminal")
	}

	task.Status = TaskStatusFailed
	if !task.IsTerminal() {
		t.Error("failed task should be terminal")
	}
}
