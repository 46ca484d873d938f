package feed

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		want    string
		hasHash bool
	}{
		{
			name: "guid wins",
			item: Item{GUID: "item-a", Link: "https://example.com/a"},
			want: "item-a",
		},
		{
			name: "guid is trimmed",
			item: Item{GUID: "  item-a  "},
			want: "item-a",
		},
		{
			name: "blank guid falls back to link",
			item: Item{GUID: "   ", Link: "https://example.com/a"},
			want: "https://example.com/a",
		},
		{
			name:    "no identifier hashes content",
			item:    Item{Title: "Post", Published: "Mon, 01 Jan 2024 00:00:00 GMT"},
			hasHash: true,
		},
		{
			name:    "fully empty item still hashes",
			item:    Item{},
			hasHash: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key(tt.item)
			if tt.hasHash {
				if len(got) != 64 || strings.ToLower(got) != got {
					t.Errorf("expected lowercase hex sha256, got %q", got)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Key mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeyHashIsDeterministic(t *testing.T) {
	a := Item{Title: "Post", Published: "Mon, 01 Jan 2024 00:00:00 GMT", Updated: "Tue, 02 Jan 2024 00:00:00 GMT"}
	b := Item{Title: "Post", Published: "Mon, 01 Jan 2024 00:00:00 GMT", Updated: "Tue, 02 Jan 2024 00:00:00 GMT"}
	if diff := cmp.Diff(Key(a), Key(b)); diff != "" {
		t.Errorf("identical items produced different keys (-a +b):\n%s", diff)
	}

	c := Item{Title: "Post", Published: "Mon, 01 Jan 2024 00:00:00 GMT"}
	if Key(a) == Key(c) {
		t.Error("items with different updated fields collided")
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "title summary and content joined",
			item: Item{Title: "T", Summary: "S", Content: []string{"C1", "C2"}},
			want: "T\nS\nC1\nC2",
		},
		{
			name: "blank parts dropped",
			item: Item{Title: "T", Summary: "   ", Content: []string{"", "C"}},
			want: "T\nC",
		},
		{
			name: "empty item yields empty text",
			item: Item{},
			want: "",
		},
		{
			name: "title only",
			item: Item{Title: "Just a title"},
			want: "Just a title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Text(tt.item)); diff != "" {
				t.Errorf("Text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
