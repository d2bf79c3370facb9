package mongo

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	fieldID     = "_id"
	fieldSeq    = "_seq"
	fieldParent = "_parent"
)

// location maps a logical collection path onto a physical collection.
// "chats/a_b/messages" lives in "chats.messages" with _parent "chats/a_b".
type location struct {
	name   string
	parent string
}

func locate(path string) location {
	segments := strings.Split(path, "/")
	if len(segments) == 1 {
		return location{name: path}
	}
	names := make([]string, 0, len(segments)/2+1)
	for i := 0; i < len(segments); i += 2 {
		names = append(names, segments[i])
	}
	return location{
		name:   strings.Join(names, "."),
		parent: strings.Join(segments[:len(segments)-1], "/"),
	}
}

func (l location) selector(id string) bson.M {
	filter := bson.M{fieldID: id}
	if l.parent != "" {
		filter[fieldParent] = l.parent
	}
	return filter
}

// encodeValue converts a JSON-model value for storage, keeping times native
func encodeValue(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return primitive.NewDateTimeFromTime(t), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return primitive.NewDateTimeFromTime(*t), nil
	}
	return docstore.Normalize(v)
}

// encodeDocument builds a fresh document, resolving sentinels
func encodeDocument(data map[string]any, now time.Time) (bson.M, error) {
	out := bson.M{}
	for field, value := range data {
		switch {
		case docstore.IsServerTimestamp(value):
			out[field] = primitive.NewDateTimeFromTime(now)
		case docstore.IsDeleteField(value):
		default:
			if values, ok := docstore.UnionValues(value); ok {
				arr := bson.A{}
				for _, v := range values {
					enc, err := encodeValue(v)
					if err != nil {
						return nil, err
					}
					if !containsBSON(arr, enc) {
						arr = append(arr, enc)
					}
				}
				out[field] = arr
				continue
			}
			enc, err := encodeValue(value)
			if err != nil {
				return nil, err
			}
			out[field] = enc
		}
	}
	return out, nil
}

func containsBSON(arr bson.A, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(decodeValue(e), decodeValue(v)) {
			return true
		}
	}
	return false
}

// encodePatch turns a patch into update operators
func encodePatch(patch map[string]any, now time.Time) (bson.M, error) {
	set, unset, addToSet := bson.M{}, bson.M{}, bson.M{}
	for field, value := range patch {
		switch {
		case docstore.IsServerTimestamp(value):
			set[field] = primitive.NewDateTimeFromTime(now)
		case docstore.IsDeleteField(value):
			unset[field] = ""
		default:
			if values, ok := docstore.UnionValues(value); ok {
				each := bson.A{}
				for _, v := range values {
					enc, err := encodeValue(v)
					if err != nil {
						return nil, err
					}
					each = append(each, enc)
				}
				addToSet[field] = bson.M{"$each": each}
				continue
			}
			enc, err := encodeValue(value)
			if err != nil {
				return nil, err
			}
			set[field] = enc
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	return update, nil
}

// decodeDocument strips bookkeeping fields and converts BSON to the JSON
// model, except that dates come back as time.Time.
func decodeDocument(raw bson.M) docstore.Document {
	id, _ := raw[fieldID].(string)
	data := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case fieldID, fieldSeq, fieldParent:
			continue
		}
		data[k] = decodeValue(v)
	}
	return docstore.Document{ID: id, Data: data}
}

func decodeValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = decodeValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = decodeValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = decodeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = decodeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = decodeValue(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	}
	return v
}
