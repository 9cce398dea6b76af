package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
)

// IDCursor points just past the last row of a page ordered by ascending id.
type IDCursor struct {
	ID int64 `json:"id"`
}

var ErrInvalidCursor = errors.New("invalid cursor")

func EncodeIDCursor(id int64) (string, error) {
	b, err := json.Marshal(IDCursor{ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeIDCursor returns 0 for an empty cursor, meaning the first page.
func DecodeIDCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var c IDCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, ErrInvalidCursor
	}
	if c.ID <= 0 {
		return 0, ErrInvalidCursor
	}
	return c.ID, nil
}

// BuildListCacheKey names one cached page of a list endpoint.
func BuildListCacheKey(resource string, afterID int64, limit int) string {
	return resource + ":list:v1:after=" + strconv.FormatInt(afterID, 10) +
		":limit=" + strconv.Itoa(limit)
}
