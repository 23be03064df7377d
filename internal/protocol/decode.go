package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/tasksync/internal/store"
	"github.com/tidwall/gjson"
)

var (
	errItemNotObject    = errors.New("not an object")
	errItemIDMissing    = errors.New("missing id")
	errItemIDNotInteger = errors.New("id is not an integer")
	errItemDescription  = errors.New("description is not a string")
	errItemCompleted    = errors.New("completed is not a boolean")
)

// Decode parses one framed line.
//
// A FULL_LIST is all-or-nothing: one invalid item rejects the whole message.
// Well-formed messages of an unknown kind return Unrecognized together with
// ErrUnknownType so callers can drop them without treating them as corrupt.
func Decode(line string) (Message, error) {
	if !gjson.Valid(line) {
		return nil, ErrMalformedJSON
	}
	root := gjson.Parse(line)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedPayload)
	}
	kind := root.Get("type")
	if kind.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}

	switch MessageType(kind.Str) {
	case TypeFullList:
		return decodeFullList(root)
	default:
		return Unrecognized{Kind: MessageType(kind.Str)}, fmt.Errorf("%w: %q", ErrUnknownType, kind.Str)
	}
}

func decodeFullList(root gjson.Result) (Message, error) {
	items := root.Get("items")
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: items is not an array", ErrMalformedPayload)
	}
	elems := items.Array()
	out := make([]store.TaskItem, 0, len(elems))
	for i, el := range elems {
		item, err := decodeItem(el)
		if err != nil {
			return nil, fmt.Errorf("%w: items[%d]: %v", ErrMalformedPayload, i, err)
		}
		out = append(out, item)
	}
	return FullList{Items: out}, nil
}

func decodeItem(el gjson.Result) (store.TaskItem, error) {
	if !el.IsObject() {
		return store.TaskItem{}, errItemNotObject
	}

	id := el.Get("id")
	if !id.Exists() {
		return store.TaskItem{}, errItemIDMissing
	}
	if id.Type != gjson.Number {
		return store.TaskItem{}, errItemIDNotInteger
	}
	n, err := strconv.ParseInt(id.Raw, 10, 64)
	if err != nil {
		return store.TaskItem{}, errItemIDNotInteger
	}

	var desc string
	switch d := el.Get("description"); d.Type {
	case gjson.String:
		desc = d.Str
	case gjson.Null:
		// absent or explicit null
	default:
		return store.TaskItem{}, errItemDescription
	}

	completed := el.Get("completed")
	if completed.Type != gjson.True && completed.Type != gjson.False {
		return store.TaskItem{}, errItemCompleted
	}

	return store.TaskItem{
		ID:          n,
		Description: desc,
		Completed:   completed.Type == gjson.True,
	}, nil
}
