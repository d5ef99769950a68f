package validation

import (
	"reflect"
	"testing"
)

type taskInput struct {
	Title    string `validate:"required,max=200"`
	Priority string `validate:"omitempty,priority"`
	Status   string `validate:"omitempty,task_status"`
	Color    string `validate:"omitempty,hexcolor"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   taskInput
		wantErr bool
	}{
		{name: "valid", input: taskInput{Title: "a", Priority: "high", Status: "overdue", Color: "#aabbcc"}},
		{name: "missing title", input: taskInput{Priority: "low"}, wantErr: true},
		{name: "bad priority", input: taskInput{Title: "a", Priority: "urgent"}, wantErr: true},
		{name: "bad status", input: taskInput{Title: "a", Status: "done"}, wantErr: true},
		{name: "bad color", input: taskInput{Title: "a", Color: "red"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate.Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := SanitizeText("  hello\x00 world\n "); got != "hello world" {
		t.Errorf("Expected 'hello world', got %q", got)
	}
	if got := SanitizeText("line1\nline2\tend"); got != "line1\nline2\tend" {
		t.Errorf("Expected newline and tab kept, got %q", got)
	}
}

func TestSanitizeTags(t *testing.T) {
	t.Parallel()

	got := SanitizeTags([]string{" Home ", "home", "", "work", "\x01"})
	want := []string{"home", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestValidateEnums(t *testing.T) {
	t.Parallel()

	if err := ValidatePriority("medium"); err != nil {
		t.Errorf("Expected medium to be valid, got %v", err)
	}
	if err := ValidatePriority("critical"); err == nil {
		t.Error("Expected critical to be rejected")
	}
	if err := ValidateTaskStatus("all"); err != nil {
		t.Errorf("Expected all to be valid, got %v", err)
	}
	if err := ValidateTaskStatus(""); err == nil {
		t.Error("Expected empty status to be rejected")
	}
}
