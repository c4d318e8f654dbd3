package initdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrMalformed = errors.New("malformed init data")

// maxLength bounds the raw header before any parsing work is done.
const maxLength = 1024

// User is the embedded user object of Telegram init data.
type User struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	LanguageCode    string `json:"language_code"`
	PhotoURL        string `json:"photo_url"`
	AllowsWriteToPM bool   `json:"allows_write_to_pm"`
}

type pair struct {
	key   string
	value string
}

// InitData is a parsed X-InitData payload. pairs holds every decoded
// field except the two proof fields (hash, signature), in wire order.
type InitData struct {
	Hash      string
	Signature string
	AuthDate  time.Time
	User      User

	pairs []pair
}

// Parse decodes a raw URL-encoded init data string. It fails when a
// pair cannot be decoded, hash or auth_date is missing, auth_date is
// not a unix timestamp, or the user field is not valid JSON.
func Parse(raw string) (*InitData, error) {
	if len(raw) > maxLength {
		return nil, fmt.Errorf("%w: data too long", ErrMalformed)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty data", ErrMalformed)
	}

	d := &InitData{}
	haveAuthDate := false

	for _, field := range strings.Split(raw, "&") {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("%w: field without value: %q", ErrMalformed, field)
		}

		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad key encoding: %q", ErrMalformed, k)
		}

		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value encoding for %q", ErrMalformed, key)
		}

		switch key {
		case "hash":
			d.Hash = value
			continue
		case "signature":
			d.Signature = value
			continue
		case "auth_date":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid auth_date", ErrMalformed)
			}
			d.AuthDate = time.Unix(ts, 0)
			haveAuthDate = true
		case "user":
			if err := json.Unmarshal([]byte(value), &d.User); err != nil {
				return nil, fmt.Errorf("%w: invalid user json", ErrMalformed)
			}
		}

		d.pairs = append(d.pairs, pair{key: key, value: value})
	}

	if d.Hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrMalformed)
	}
	if !haveAuthDate {
		return nil, fmt.Errorf("%w: missing auth_date", ErrMalformed)
	}

	return d, nil
}

// CheckString rebuilds the canonical data-check string: every field
// except hash and signature, sorted by key, joined as key=value lines.
// Verification depends on this byte-for-byte, so no trailing newline.
func (d *InitData) CheckString() string {
	lines := make([]string, 0, len(d.pairs))
	for _, p := range d.pairs {
		lines = append(lines, p.key+"="+p.value)
	}
	sort.Strings(lines)

	return strings.Join(lines, "\n")
}
