package navdata

import (
	"encoding/json"
	"fmt"
	"html"
)

// VarSearchData is the variable every search shard declares.
const VarSearchData = "searchData"

// SearchRecord is one row of a search shard: a synthetic id and the display
// variants that share it (overloads, same name in several scopes).
type SearchRecord struct {
	ID    string
	Items []SearchItem
}

// SearchItem is one display variant of a search record.
type SearchItem struct {
	DisplayName string
	Href        string
	Scope       string // HTML-unescaped context label, empty when absent
}

// ParseSearchData decodes a search/*.js shard. Two layouts are accepted:
//
//	[id, [displayName, [href, isLocal, scope], [href, isLocal, scope], ...]]   (Doxygen)
//	[id, [[displayName, href, scope|null], ...]]                               (flattened)
func ParseSearchData(src []byte) ([]SearchRecord, error) {
	raw, err := ExtractVar(src, VarSearchData)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", VarSearchData, err)
	}

	records := make([]SearchRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, fmt.Errorf("search record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(row json.RawMessage) (SearchRecord, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(row, &parts); err != nil || len(parts) != 2 {
		return SearchRecord{}, fmt.Errorf("want [id, payload]")
	}

	var rec SearchRecord
	if err := json.Unmarshal(parts[0], &rec.ID); err != nil {
		return SearchRecord{}, fmt.Errorf("id is not a string")
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(parts[1], &payload); err != nil || len(payload) == 0 {
		return SearchRecord{}, fmt.Errorf("payload is not a non-empty array")
	}

	if firstByte(payload[0]) == '"' {
		var display string
		if err := json.Unmarshal(payload[0], &display); err != nil {
			return SearchRecord{}, err
		}
		for _, ref := range payload[1:] {
			var fields []any
			if err := json.Unmarshal(ref, &fields); err != nil || len(fields) == 0 {
				return SearchRecord{}, fmt.Errorf("reference is not an array")
			}
			href, ok := fields[0].(string)
			if !ok {
				return SearchRecord{}, fmt.Errorf("href is not a string")
			}
			item := SearchItem{DisplayName: display, Href: href}
			if len(fields) > 2 {
				if scope, ok := fields[2].(string); ok {
					item.Scope = html.UnescapeString(scope)
				}
			}
			rec.Items = append(rec.Items, item)
		}
		return rec, nil
	}

	for _, v := range payload {
		var fields []*string
		if err := json.Unmarshal(v, &fields); err != nil || len(fields) < 2 || fields[0] == nil || fields[1] == nil {
			return SearchRecord{}, fmt.Errorf("variant must be [displayName, href, context]")
		}
		item := SearchItem{DisplayName: *fields[0], Href: *fields[1]}
		if len(fields) > 2 && fields[2] != nil {
			item.Scope = html.UnescapeString(*fields[2])
		}
		rec.Items = append(rec.Items, item)
	}
	return rec, nil
}
