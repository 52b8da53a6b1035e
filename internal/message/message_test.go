package message

import (
	"errors"
	"testing"
)

type path string

func (p path) Path() string { return string(p) }

func TestCreateLogChangeMessage(t *testing.T) {
	tests := []struct {
		name    string
		factory Factory
		lines   []string
		want    string
	}{
		{
			name:    "legacy",
			factory: Legacy{},
			lines:   []string{"x"},
			want:    `{"type":"change","file":"/var/log/app.log","changes":["x"]}`,
		},
		{
			name:    "default",
			factory: Default{},
			lines:   []string{"x"},
			want:    `{"type":"change","changes":["x"]}`,
		},
		{
			name:    "default multiple lines",
			factory: Default{},
			lines:   []string{"a", "", "b \"quoted\""},
			want:    `{"type":"change","changes":["a","","b \"quoted\""]}`,
		},
		{
			name:    "legacy nil lines",
			factory: Legacy{},
			lines:   nil,
			want:    `{"type":"change","file":"/var/log/app.log","changes":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.factory.CreateLogChangeMessage(path("/var/log/app.log"), tt.lines)
			if err != nil {
				t.Fatalf("CreateLogChangeMessage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CreateLogChangeMessage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateErrorMessage(t *testing.T) {
	want := `{"type":"error","message":"disk on fire"}`
	for _, f := range []Factory{Legacy{}, Default{}} {
		got, err := f.CreateErrorMessage(errors.New("disk on fire"))
		if err != nil {
			t.Fatalf("CreateErrorMessage() error = %v", err)
		}
		if got != want {
			t.Errorf("%T.CreateErrorMessage() = %s, want %s", f, got, want)
		}
	}

	got, _ := Default{}.CreateErrorMessage(nil)
	if got != `{"type":"error","message":"unknown error"}` {
		t.Errorf("CreateErrorMessage(nil) = %s", got)
	}
}

func TestForAPIVersion(t *testing.T) {
	if f, err := ForAPIVersion(APILegacy); err != nil || f != (Legacy{}) {
		t.Errorf("ForAPIVersion(legacy) = %T, %v", f, err)
	}
	if f, err := ForAPIVersion(APIV1); err != nil || f != (Default{}) {
		t.Errorf("ForAPIVersion(v1) = %T, %v", f, err)
	}
	if _, err := ForAPIVersion("v9"); err == nil {
		t.Error("ForAPIVersion(v9) should fail")
	}
}
