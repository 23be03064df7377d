package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/tasksync/internal/store"
	"github.com/danmuck/tasksync/internal/testutil/testlog"
)

func TestEncodeCommands(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		cmd  Command
		want string
	}{
		{RequestList{}, "GET\n"},
		{AddItem{Description: "buy milk"}, "ADD:buy milk\n"},
		{AddItem{Description: "a:b"}, "ADD:a:b\n"},
		{ToggleItem{ID: 42}, "TOGGLE:42\n"},
		{ToggleItem{ID: -7}, "TOGGLE:-7\n"},
	}
	for _, tc := range cases {
		if got := string(Encode(tc.cmd)); got != tc.want {
			t.Fatalf("encode %#v got=%q want=%q", tc.cmd, got, tc.want)
		}
	}
}

func TestEncodeDoesNotEscapeNewline(t *testing.T) {
	testlog.Start(t)
	got := string(Encode(AddItem{Description: "two\nlines"}))
	if got != "ADD:two\nlines\n" {
		t.Fatalf("unexpected encoding: %q", got)
	}
}

func TestValidateDescription(t *testing.T) {
	testlog.Start(t)
	got, err := ValidateDescription("  walk dog \t")
	if err != nil || got != "walk dog" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	for _, in := range []string{"", "  ", "\n\t"} {
		if _, err := ValidateDescription(in); !errors.Is(err, ErrEmptyDescription) {
			t.Fatalf("input %q: expected ErrEmptyDescription, got %v", in, err)
		}
	}
}

func TestDecodeEmptyFullList(t *testing.T) {
	testlog.Start(t)
	msg, err := Decode(`{"type":"FULL_LIST","items":[]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fl, ok := msg.(FullList)
	if !ok {
		t.Fatalf("unexpected message: %#v", msg)
	}
	if fl.Items == nil || len(fl.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", fl.Items)
	}

	s := store.New()
	s.ApplyReplaceAll([]store.TaskItem{{ID: 1}})
	snap := fl.Event().Apply(s)
	if snap.Len() != 0 {
		t.Fatalf("store should be empty: %+v", snap)
	}
}

func TestDecodeSingleItem(t *testing.T) {
	testlog.Start(t)
	msg, err := Decode(`{"type":"FULL_LIST","items":[{"id":5,"description":"buy milk","completed":false}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := FullList{Items: []store.TaskItem{{ID: 5, Description: "buy milk", Completed: false}}}
	if !reflect.DeepEqual(msg, want) {
		t.Fatalf("got=%#v want=%#v", msg, want)
	}
	if msg.Type() != TypeFullList {
		t.Fatalf("unexpected type: %q", msg.Type())
	}
}

func TestDecodeDescriptionDefaults(t *testing.T) {
	testlog.Start(t)
	msg, err := Decode(`{"type":"FULL_LIST","items":[{"id":1,"completed":true},{"id":2,"description":null,"completed":false}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	items := msg.(FullList).Items
	if items[0].Description != "" || items[1].Description != "" || !items[0].Completed {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestDecodeEscapedDescription(t *testing.T) {
	testlog.Start(t)
	msg, err := Decode(`{"type":"FULL_LIST","items":[{"id":1,"description":"say \"hi\"\nnow é","completed":false}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := msg.(FullList).Items[0].Description; got != "say \"hi\"\nnow é" {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	testlog.Start(t)
	for _, line := range []string{"not json", `{"type":"FULL_LIST"`, ""} {
		if _, err := Decode(line); !errors.Is(err, ErrMalformedJSON) {
			t.Fatalf("line %q: expected ErrMalformedJSON, got %v", line, err)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	testlog.Start(t)
	msg, err := Decode(`{"type":"PING"}`)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	u, ok := msg.(Unrecognized)
	if !ok || u.Type() != "PING" {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	testlog.Start(t)
	lines := []string{
		`[1,2]`,
		`{"items":[]}`,
		`{"type":7}`,
		`{"type":"FULL_LIST"}`,
		`{"type":"FULL_LIST","items":{}}`,
		`{"type":"FULL_LIST","items":[1]}`,
		`{"type":"FULL_LIST","items":[{"description":"no id","completed":false}]}`,
		`{"type":"FULL_LIST","items":[{"id":"1","description":"x","completed":false}]}`,
		`{"type":"FULL_LIST","items":[{"id":1.5,"description":"x","completed":false}]}`,
		`{"type":"FULL_LIST","items":[{"id":1,"description":3,"completed":false}]}`,
		`{"type":"FULL_LIST","items":[{"id":1,"description":"x"}]}`,
		`{"type":"FULL_LIST","items":[{"id":1,"description":"x","completed":"yes"}]}`,
	}
	for _, line := range lines {
		msg, err := Decode(line)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("line %s: expected ErrMalformedPayload, got %v", line, err)
		}
		if msg != nil {
			t.Fatalf("line %s: rejected message must be nil, got %#v", line, msg)
		}
	}
}

func TestDecodeRejectsWholeListOnOneBadItem(t *testing.T) {
	testlog.Start(t)
	line := `{"type":"FULL_LIST","items":[{"id":1,"description":"ok","completed":false},{"description":"missing id","completed":true}]}`
	msg, err := Decode(line)
	if !errors.Is(err, ErrMalformedPayload) || msg != nil {
		t.Fatalf("expected whole-message rejection, got msg=%#v err=%v", msg, err)
	}

	s := store.New()
	s.ApplyReplaceAll([]store.TaskItem{{ID: 9, Description: "previous"}})
	if items := s.Items(); len(items) != 1 || items[0].ID != 9 {
		t.Fatalf("store changed: %+v", items)
	}
}
