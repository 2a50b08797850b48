package relay

import (
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/goevery/sharerelay/internal/ierr"
)

const ShareEventType = "share_page"

// ShareEvent is the only inbound record the relay acts on. Unknown fields are
// allowed; the original bytes are what gets forwarded.
type ShareEvent struct {
	Type string `json:"type"`
	Url  string `json:"url"`
}

// ParseShareEvent decodes data as a ShareEvent. Data that is not valid UTF-8
// is rejected, since it is forwarded to peers as a text frame.
func ParseShareEvent(data []byte) (ShareEvent, error) {
	if !utf8.Valid(data) {
		return ShareEvent{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("message is not valid utf-8"))
	}

	var event ShareEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ShareEvent{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid message: "+err.Error()))
	}

	if event.Type != ShareEventType {
		return ShareEvent{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unsupported event type: "+event.Type))
	}

	if event.Url == "" {
		return ShareEvent{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing url"))
	}

	return event, nil
}
