package episode

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// DecodeError reports a missing or malformed field in an external episode record.
type DecodeError struct {
	Index int    // Position in the decoded list (-1 for a single record)
	Field string // Field name as it appears in the record
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("episode record %d: field %q: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("episode record: field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrMissingField is wrapped by DecodeError when a required field is absent.
var ErrMissingField = errors.New("required field is missing")

// rawFile is the nested media block used by the episodes API.
type rawFile struct {
	URL      string `mapstructure:"url"`
	Type     string `mapstructure:"type"`
	Duration *int   `mapstructure:"duration"`
}

// rawRecord is the loosely typed record returned by an episode source.
// Media fields may be nested under "file" or flattened at the top level.
type rawRecord struct {
	ID          string   `mapstructure:"id"`
	Title       string   `mapstructure:"title"`
	Members     any      `mapstructure:"members"`
	Thumbnail   string   `mapstructure:"thumbnail"`
	Description string   `mapstructure:"description"`
	PublishedAt string   `mapstructure:"published_at"`
	URL         string   `mapstructure:"url"`
	Duration    *int     `mapstructure:"duration"`
	File        *rawFile `mapstructure:"file"`
}

// required holds the fields that must be present after flattening.
type required struct {
	ID       string `name:"id" validate:"required"`
	URL      string `name:"url" validate:"required"`
	Duration *int   `name:"duration" validate:"required,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("name")
	})
	return v
}

// publishedLayouts are the timestamp layouts accepted for published_at.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Decode converts a loosely typed record into an Episode.
func Decode(record map[string]any) (Episode, error) {
	return decode(record, -1)
}

// DecodeList converts a list of records, failing on the first malformed one.
func DecodeList(records []map[string]any) ([]Episode, error) {
	episodes := make([]Episode, 0, len(records))
	for i, r := range records {
		e, err := decode(r, i)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, nil
}

func decode(record map[string]any, index int) (Episode, error) {
	var raw rawRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       rejectBlankNumbers,
	})
	if err != nil {
		return Episode{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(record); err != nil {
		return Episode{}, &DecodeError{Index: index, Field: decodeErrorField(err), Err: err}
	}

	req := required{ID: raw.ID, URL: raw.URL, Duration: raw.Duration}
	if raw.File != nil {
		if raw.File.URL != "" {
			req.URL = raw.File.URL
		}
		if raw.File.Duration != nil {
			req.Duration = raw.File.Duration
		}
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			cause := ErrMissingField
			if fe.Tag() != "required" {
				cause = errors.Newf("failed %q constraint (value %v)", fe.Tag(), fe.Value())
			}
			return Episode{}, &DecodeError{Index: index, Field: fe.Field(), Err: cause}
		}
		return Episode{}, &DecodeError{Index: index, Field: "", Err: err}
	}

	members, err := decodeMembers(raw.Members)
	if err != nil {
		return Episode{}, &DecodeError{Index: index, Field: "members", Err: err}
	}

	var published time.Time
	if raw.PublishedAt != "" {
		published, err = parsePublishedAt(raw.PublishedAt)
		if err != nil {
			return Episode{}, &DecodeError{Index: index, Field: "published_at", Err: err}
		}
	}

	e := Episode{
		ID:          raw.ID,
		Title:       raw.Title,
		Members:     members,
		Thumbnail:   raw.Thumbnail,
		Description: raw.Description,
		PublishedAt: published,
		Duration:    *req.Duration,
		URL:         req.URL,
	}
	return e.withDerived(), nil
}

// rejectBlankNumbers stops weak decoding from turning "" into 0 for
// numeric fields.
func rejectBlankNumbers(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if strings.TrimSpace(reflect.ValueOf(data).String()) == "" {
			return nil, errors.New("blank value for a number")
		}
	}
	return data, nil
}

// decodeMembers accepts either a display string or a list of names.
func decodeMembers(v any) (string, error) {
	switch m := v.(type) {
	case nil:
		return "", nil
	case string:
		return m, nil
	case []string:
		return strings.Join(m, ", "), nil
	case []any:
		names := make([]string, 0, len(m))
		for _, n := range m {
			s, ok := n.(string)
			if !ok {
				return "", errors.Newf("unexpected member entry of type %T", n)
			}
			names = append(names, s)
		}
		return strings.Join(names, ", "), nil
	default:
		return "", errors.Newf("unexpected members type %T", v)
	}
}

func parsePublishedAt(s string) (time.Time, error) {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized timestamp %q", s)
}

// decodeErrorField extracts the offending field name from a mapstructure error.
func decodeErrorField(err error) string {
	var merr *mapstructure.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		// Messages look like: 'duration' expected type 'int', got ...
		msg := merr.Errors[0]
		if start := strings.IndexByte(msg, '\''); start >= 0 {
			if end := strings.IndexByte(msg[start+1:], '\''); end >= 0 {
				return msg[start+1 : start+1+end]
			}
		}
	}
	return ""
}
