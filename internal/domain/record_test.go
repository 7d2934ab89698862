package domain

import "testing"

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{"John Smith", "John", "Smith"},
		{"Prince", "Prince", ""},
		{"Mary Ann  Jones", "Mary", "Jones"},
		{"  Ana   Lopez ", "Ana", "Lopez"},
		{"", "", ""},
	}

	for _, tt := range tests {
		first, last := SplitName(tt.in)
		if first != tt.wantFirst || last != tt.wantLast {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.in, first, last, tt.wantFirst, tt.wantLast)
		}
	}
}

func TestParseInmateID(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", "#12345", "12345", true},
		{"padded", "  # 12345  ", "12345", true},
		{"multi-line", "DOC #A-778\nState Prison", "A-778", true},
		{"last hash wins", "ID #1 #2", "2", true},
		{"no hash", "Unknown", "Unknown", false},
		{"hash on second line only", "Facility\n#99", "Facility", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInmateID(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseInmateID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRecord_IdentityKey(t *testing.T) {
	a := Record{InmateID: "1", FirstName: "John", LastName: "Smith", City: "Austin"}
	b := Record{InmateID: "1", FirstName: "John", LastName: "Smith", City: "Dallas"}
	c := Record{InmateID: "2", FirstName: "John", LastName: "Smith"}

	if a.IdentityKey() != b.IdentityKey() {
		t.Errorf("records differing only in city must share a key")
	}
	if a.IdentityKey() == c.IdentityKey() {
		t.Errorf("records with different ids must not share a key")
	}
	if got := a.IdentityKey(); got != "1_John_Smith" {
		t.Errorf("IdentityKey() = %q, want 1_John_Smith", got)
	}
}

func TestNormalizeInmateID(t *testing.T) {
	for in, want := range map[string]string{"#123": "123", " #123 ": "123", "123": "123", "": ""} {
		if got := NormalizeInmateID(in); got != want {
			t.Errorf("NormalizeInmateID(%q) = %q, want %q", in, got, want)
		}
	}
	if got := FormatInmateID("123"); got != "#123" {
		t.Errorf("FormatInmateID = %q, want #123", got)
	}
}

func TestCredential_StringMasksPassword(t *testing.T) {
	c := Credential{Username: "alice", Password: "hunter2"}
	if got := c.String(); got != "alice:*****" {
		t.Errorf("String() = %q", got)
	}
}
