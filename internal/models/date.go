package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// dateLayouts are tried in order when decoding a Date from a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date is a nullable point in time. It decodes from an RFC 3339 timestamp, a
// plain YYYY-MM-DD date (midnight UTC), "" or null; the last two leave it
// unset. It is stored as a timestamp column, or as a BSON date.
type Date struct {
	Time  time.Time
	Valid bool
}

func NewDate(t time.Time) Date {
	return Date{Time: t, Valid: true}
}

// ParseDate accepts the same inputs as the JSON decoder, minus null.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.UTC()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or an RFC 3339 timestamp", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.UTC().Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date %s: want a string or null", data)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType makes the migrator create a timestamp column.
func (Date) GormDataType() string {
	return "time"
}

func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time.UTC(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v.UTC())
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// scanString handles drivers that hand timestamps back as text.
func (d *Date) scanString(s string) error {
	for _, layout := range []string{"2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t.UTC())
			return nil
		}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !d.Valid {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(d.Time.UTC())
}

func (d *Date) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*d = Date{}
		return nil
	case bson.TypeDateTime:
		raw := bson.RawValue{Type: t, Value: data}
		*d = NewDate(raw.Time().UTC())
		return nil
	default:
		return fmt.Errorf("cannot decode BSON %s into Date", t)
	}
}
