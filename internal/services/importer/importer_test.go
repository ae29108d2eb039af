package importer

import (
	"strings"
	"testing"
)

func TestParsePOIs(t *testing.T) {
	csv := `Rome Walk stops,,
Title,Text,Audio,Image
Colosseum,<p>Built in 80 AD</p>,https://cdn.example.com/a1.mp3,https://cdn.example.com/i1.jpg
,,
Forum,<p>Heart of Rome</p>,,
`
	result, err := ParsePOIs(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParsePOIs() error = %v", err)
	}

	if len(result.POIs) != 2 {
		t.Fatalf("got %d stops, want 2", len(result.POIs))
	}

	first := result.POIs[0]
	if first.Title != "Colosseum" {
		t.Errorf("first title = %q, want Colosseum", first.Title)
	}
	if first.AudioURL != "https://cdn.example.com/a1.mp3" {
		t.Errorf("first audio = %q", first.AudioURL)
	}
	if first.FeaturedImageURL != "https://cdn.example.com/i1.jpg" {
		t.Errorf("first image = %q", first.FeaturedImageURL)
	}
	if first.OrderIndex != 0 || result.POIs[1].OrderIndex != 1 {
		t.Errorf("order = %d,%d, want 0,1", first.OrderIndex, result.POIs[1].OrderIndex)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestParsePOIs_OrderColumn(t *testing.T) {
	csv := "order,name\n2,Final Stop\n1,Start\nx,Broken\n,No Order\n"

	result, err := ParsePOIs(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParsePOIs() error = %v", err)
	}

	if len(result.POIs) != 3 {
		t.Fatalf("got %d stops, want 3", len(result.POIs))
	}
	if result.POIs[0].OrderIndex != 2 || result.POIs[1].OrderIndex != 1 {
		t.Errorf("explicit order not kept: %d,%d", result.POIs[0].OrderIndex, result.POIs[1].OrderIndex)
	}
	if result.POIs[2].OrderIndex != 2 {
		t.Errorf("positional order = %d, want 2", result.POIs[2].OrderIndex)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "row 4") {
		t.Errorf("errors = %v, want one for row 4", result.Errors)
	}
}

func TestParsePOIs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
	}{
		{"empty", "", ErrEmptyFile},
		{"no title column", "foo,bar\n1,2\n", ErrUnknownFormat},
		{"header only", "title,text\n", ErrNoData},
		{"blank titles", "title,text\n,hello\n", ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePOIs(strings.NewReader(tt.csv))
			if err != tt.wantErr {
				t.Errorf("ParsePOIs() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCleanTitle(t *testing.T) {
	long := strings.Repeat("a", 250)
	if got := cleanTitle(long); len(got) != 200 {
		t.Errorf("cleanTitle() length = %d, want 200", len(got))
	}
	if got := cleanTitle("  Forum  "); got != "Forum" {
		t.Errorf("cleanTitle() = %q, want Forum", got)
	}
}
