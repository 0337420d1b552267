package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	blockSet := map[string]bool{"images": true, "fonts": true, "xhr": true}
	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Media", false},
		{"Stylesheet", false},
		{"XHR", true},
		{"Document", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(blockSet, tt.resType); got != tt.want {
			t.Errorf("shouldBlock(%q) = %v, want %v", tt.resType, got, tt.want)
		}
	}
}

func TestNewPage_NotStarted(t *testing.T) {
	m := NewManager(Config{})
	if _, err := m.NewPage(); err == nil {
		t.Fatal("expected error before Start")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close on unstarted manager: %v", err)
	}
}
