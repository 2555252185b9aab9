package query

import "net/url"

// Signature is the canonical encoding of a Criteria/SortOrder pair. It keys
// the result cache and doubles as the API query string.
type Signature string

// Values encodes the active fields plus the sort order. Unconstrained fields
// are omitted so equal selections always produce the same set of keys.
func Values(c Criteria, o SortOrder) url.Values {
	v := url.Values{}
	for _, f := range Fields {
		if s := c.value(f); s != "" {
			v.Set(string(f), s)
		}
	}
	v.Set("sort", string(o.Field))
	v.Set("dir", string(o.Direction))
	return v
}

// SignatureOf returns the deterministic signature of a selection.
// url.Values.Encode sorts by key, which makes the result independent of
// the order in which fields were set.
func SignatureOf(c Criteria, o SortOrder) Signature {
	return Signature(Values(c, o).Encode())
}

func (s Signature) String() string {
	return string(s)
}
