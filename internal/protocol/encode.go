package protocol

import (
	"strconv"
	"strings"
)

const (
	cmdGet    = "GET"
	cmdAdd    = "ADD:"
	cmdToggle = "TOGGLE:"

	Delimiter = '\n'
)

// Command is one outbound intent. Implementations: RequestList, AddItem, ToggleItem.
type Command interface {
	appendTo(dst []byte) []byte
}

// RequestList asks the server for a full snapshot.
type RequestList struct{}

// AddItem asks the server to create an item. Description must already be
// validated with ValidateDescription.
type AddItem struct {
	Description string
}

// ToggleItem asks the server to flip completion of item ID.
type ToggleItem struct {
	ID int64
}

func (RequestList) appendTo(dst []byte) []byte {
	return append(dst, cmdGet...)
}

func (c AddItem) appendTo(dst []byte) []byte {
	dst = append(dst, cmdAdd...)
	return append(dst, c.Description...)
}

func (c ToggleItem) appendTo(dst []byte) []byte {
	dst = append(dst, cmdToggle...)
	return strconv.AppendInt(dst, c.ID, 10)
}

// Encode renders cmd as one newline-terminated wire line.
func Encode(cmd Command) []byte {
	return append(cmd.appendTo(nil), Delimiter)
}

// ValidateDescription trims text and rejects an empty result.
func ValidateDescription(text string) (string, error) {
	desc := strings.TrimSpace(text)
	if desc == "" {
		return "", ErrEmptyDescription
	}
	return desc, nil
}
