package client

import (
	"errors"

	"github.com/danmuck/tasksync/internal/observability"
	"github.com/danmuck/tasksync/internal/protocol"
)

// onBytes runs on the receive goroutine only; it is the framer's sole caller.
func (c *Client) onBytes(chunk []byte) error {
	lines, err := c.framer.Feed(chunk)
	if len(lines) > 0 {
		observability.RecordLinesFramed(len(lines))
	}
	for _, line := range lines {
		c.dispatch(line)
	}
	return err
}

func (c *Client) dispatch(line string) {
	msg, err := protocol.Decode(line)
	if err != nil {
		observability.RecordDecodeError(decodeErrorKind(err))
		if errors.Is(err, protocol.ErrUnknownType) {
			c.logger.Debug().Err(err).Msg("client.Client ignoring message")
			return
		}
		c.logger.Warn().Err(err).Int("bytes", len(line)).Msg("client.Client parse error")
		return
	}

	switch m := msg.(type) {
	case protocol.FullList:
		snap := m.Event().Apply(c.store)
		observability.RecordSnapshot(snap.Len())
		c.logger.Debug().Uint64("version", snap.Version).Int("items", snap.Len()).Msg("client.Client snapshot applied")
	}
}

func decodeErrorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrMalformedJSON):
		return observability.DecodeMalformedJSON
	case errors.Is(err, protocol.ErrUnknownType):
		return observability.DecodeUnknownType
	default:
		return observability.DecodeMalformedPayload
	}
}
