// Package wire defines the JSON records exchanged between the chat server and
// its clients. Commands flow client→server and carry the tag field "_ct";
// events flow server→client and carry "_et". The short field names are part of
// the protocol and must not change.
package wire

import (
	"encoding/json"
	"fmt"
)

// Command tag values.
const (
	TagJoinRoom    = "join_room"
	TagLeaveRoom   = "leave_room"
	TagSendMessage = "send_message"
	TagQuit        = "quit"
)

// Event tag values.
const (
	TagLoginSuccessful   = "login_successful"
	TagRoomParticipation = "room_participation"
	TagUserJoinedRoom    = "user_joined_room"
	TagUserMessage       = "user_message"
)

// ParticipationStatus is the "s" field of a RoomParticipation event.
type ParticipationStatus string

const (
	StatusJoined ParticipationStatus = "joined"
	StatusLeft   ParticipationStatus = "left"
)

// Command is a client-issued instruction, one of JoinRoom, LeaveRoom,
// SendMessage or Quit.
type Command interface {
	commandTag() string
}

// JoinRoom asks the server to subscribe the session to a room.
type JoinRoom struct {
	Room string `json:"r"`
}

// LeaveRoom asks the server to unsubscribe the session from a room.
type LeaveRoom struct {
	Room string `json:"r"`
}

// SendMessage publishes a chat message to a room the session has joined.
type SendMessage struct {
	Room    string `json:"r"`
	Content string `json:"c"`
}

// Quit ends the session. It carries no payload.
type Quit struct{}

func (JoinRoom) commandTag() string    { return TagJoinRoom }
func (LeaveRoom) commandTag() string   { return TagLeaveRoom }
func (SendMessage) commandTag() string { return TagSendMessage }
func (Quit) commandTag() string        { return TagQuit }

// Event is a server-issued record, one of LoginSuccessful, RoomParticipation,
// UserJoinedRoom or UserMessage.
type Event interface {
	eventTag() string
}

// RoomDetail describes one entry of the room catalog sent in the login reply.
type RoomDetail struct {
	Name        string `json:"n"`
	Description string `json:"d"`
}

// LoginSuccessful is the first event on every connection. It carries the
// assigned identifiers and the full room catalog.
type LoginSuccessful struct {
	SessionID string       `json:"s"`
	UserID    string       `json:"u"`
	Rooms     []RoomDetail `json:"rs"`
}

// RoomParticipation announces that a user joined or left a room. It is
// broadcast once per user, not once per session.
type RoomParticipation struct {
	Room   string              `json:"r"`
	UserID string              `json:"u"`
	Status ParticipationStatus `json:"s"`
}

// UserJoinedRoom is the reply to a successful JoinRoom command, listing the
// unique users currently in the room.
type UserJoinedRoom struct {
	Room  string   `json:"r"`
	Users []string `json:"us"`
}

// UserMessage is a chat message broadcast to every subscriber of a room,
// including the author.
type UserMessage struct {
	Room    string `json:"r"`
	UserID  string `json:"u"`
	Content string `json:"c"`
}

func (LoginSuccessful) eventTag() string   { return TagLoginSuccessful }
func (RoomParticipation) eventTag() string { return TagRoomParticipation }
func (UserJoinedRoom) eventTag() string    { return TagUserJoinedRoom }
func (UserMessage) eventTag() string       { return TagUserMessage }

// CommandTag returns the "_ct" tag value of a command.
func CommandTag(cmd Command) string { return cmd.commandTag() }

// EventTag returns the "_et" tag value of an event.
func EventTag(ev Event) string { return ev.eventTag() }

// DecodeError reports a record that could not be decoded: malformed JSON, a
// missing tag, or an unknown tag value. It is recoverable; the surrounding
// stream stays usable.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("wire: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeCommand serializes a command with its "_ct" tag first, matching the
// canonical record forms.
func EncodeCommand(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case JoinRoom:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			JoinRoom
		}{TagJoinRoom, c})
	case LeaveRoom:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			LeaveRoom
		}{TagLeaveRoom, c})
	case SendMessage:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
			SendMessage
		}{TagSendMessage, c})
	case Quit:
		return json.Marshal(struct {
			Tag string `json:"_ct"`
		}{TagQuit})
	default:
		return nil, fmt.Errorf("wire: unsupported command type %T", cmd)
	}
}

// DecodeCommand parses a single framed record into a Command. Unknown or
// missing tags yield a *DecodeError.
func DecodeCommand(data []byte) (Command, error) {
	var probe struct {
		Tag string `json:"_ct"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Reason: "malformed command record", Err: err}
	}

	switch probe.Tag {
	case TagJoinRoom:
		var c JoinRoom
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, &DecodeError{Reason: "malformed join_room command", Err: err}
		}
		return c, nil
	case TagLeaveRoom:
		var c LeaveRoom
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, &DecodeError{Reason: "malformed leave_room command", Err: err}
		}
		return c, nil
	case TagSendMessage:
		var c SendMessage
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, &DecodeError{Reason: "malformed send_message command", Err: err}
		}
		return c, nil
	case TagQuit:
		return Quit{}, nil
	case "":
		return nil, &DecodeError{Reason: "command record missing _ct tag"}
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown command tag %q", probe.Tag)}
	}
}

// EncodeEvent serializes an event with its "_et" tag first, matching the
// canonical record forms.
func EncodeEvent(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case LoginSuccessful:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			LoginSuccessful
		}{TagLoginSuccessful, e})
	case RoomParticipation:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			RoomParticipation
		}{TagRoomParticipation, e})
	case UserJoinedRoom:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			UserJoinedRoom
		}{TagUserJoinedRoom, e})
	case UserMessage:
		return json.Marshal(struct {
			Tag string `json:"_et"`
			UserMessage
		}{TagUserMessage, e})
	default:
		return nil, fmt.Errorf("wire: unsupported event type %T", ev)
	}
}

// DecodeEvent parses a single framed record into an Event. Unknown or missing
// tags yield a *DecodeError.
func DecodeEvent(data []byte) (Event, error) {
	var probe struct {
		Tag string `json:"_et"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Reason: "malformed event record", Err: err}
	}

	switch probe.Tag {
	case TagLoginSuccessful:
		var e LoginSuccessful
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Reason: "malformed login_successful event", Err: err}
		}
		return e, nil
	case TagRoomParticipation:
		var e RoomParticipation
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Reason: "malformed room_participation event", Err: err}
		}
		return e, nil
	case TagUserJoinedRoom:
		var e UserJoinedRoom
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Reason: "malformed user_joined_room event", Err: err}
		}
		return e, nil
	case TagUserMessage:
		var e UserMessage
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Reason: "malformed user_message event", Err: err}
		}
		return e, nil
	case "":
		return nil, &DecodeError{Reason: "event record missing _et tag"}
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown event tag %q", probe.Tag)}
	}
}
