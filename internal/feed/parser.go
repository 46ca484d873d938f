package feed

import (
	"bytes"

	"github.com/mmcdole/gofeed"
)

// Parser converts raw feed XML into items. Malformed input is tolerated:
// unparsable content yields an empty item list, never an error.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts items from raw feed content in document order.
func (p *Parser) Parse(data []byte) []Item {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil || parsed == nil {
		return nil
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		item := Item{
			GUID:      it.GUID,
			Link:      it.Link,
			Title:     it.Title,
			Published: it.Published,
			Updated:   it.Updated,
			Summary:   it.Description,
		}
		if it.Content != "" {
			item.Content = append(item.Content, it.Content)
		}
		items = append(items, item)
	}
	return items
}
