package records

import (
	"testing"
)

func TestFromRecords(t *testing.T) {
	page := FromRecords([]Record{
		{ID: "rec1", Fields: Fields{"Name": "Ada"}},
		{ID: "rec2"},
	})

	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	if page["rec1"]["Name"] != "Ada" {
		t.Errorf("rec1 Name = %v, want Ada", page["rec1"]["Name"])
	}
	if page["rec2"] == nil {
		t.Error("rec2 fields should be an empty map, got nil")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{name: "object", input: `{"rec1":{"Name":"Ada"}}`, wantLen: 1},
		{name: "empty object", input: `{}`, wantLen: 0},
		{name: "null", input: `null`, wantErr: true},
		{name: "array", input: `[{"error":"NOT_FOUND"}]`, wantErr: true},
		{name: "truncated", input: `{"rec1":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Decode([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Decode(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", tt.input, err)
			}
			if len(page) != tt.wantLen {
				t.Errorf("len(page) = %d, want %d", len(page), tt.wantLen)
			}
		})
	}
}

func TestEncode_NilPage(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) error = %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Encode(nil) = %s, want {}", data)
	}
}
