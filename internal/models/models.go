// Package models defines the data structures shared by the chat server and client.
package models

import "time"

// TimestampLayout is the layout used when stamping outgoing messages.
// It matches the millisecond ISO-8601 form browsers produce.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// localLayout accepts ISO-8601 stamps without a zone, read as local time.
const localLayout = "2006-01-02T15:04:05.999999999"

// ChatMessage is a single chat line exchanged over a room connection.
// The wire form is the JSON object itself; there is no envelope or type field.
type ChatMessage struct {
	User      string `json:"user"`      // display name of the sender
	Text      string `json:"text"`      // message body
	Timestamp string `json:"timestamp"` // ISO-8601, assigned by the sender
}

// NewChatMessage stamps a message with the given send time in UTC.
func NewChatMessage(user, text string, at time.Time) ChatMessage {
	return ChatMessage{User: user, Text: text, Timestamp: at.UTC().Format(TimestampLayout)}
}

// Time parses the sender-assigned timestamp. Stamps without a zone offset
// are taken as local time.
func (m ChatMessage) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err == nil {
		return t, nil
	}
	if lt, lerr := time.ParseInLocation(localLayout, m.Timestamp, time.Local); lerr == nil {
		return lt, nil
	}
	return time.Time{}, err
}

// Room is a chat room known to the registry.
type Room struct {
	RoomId    string `json:"roomId"`    // room identifier
	CreatedAt int64  `json:"createdAt"` // first time the room was seen (unix seconds)
}
