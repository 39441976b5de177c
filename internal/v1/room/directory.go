package room

import (
	"fmt"

	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// Directory is the immutable room lookup built once at startup. Concurrent
// lookups need no synchronization because nothing mutates it after
// construction.
type Directory struct {
	rooms map[string]*Room
	metas []Metadata
}

// NewDirectory creates every room from the metadata list, preserving order
// for the login reply. Duplicate room names are a startup error.
func NewDirectory(metas []Metadata) (*Directory, error) {
	d := &Directory{
		rooms: make(map[string]*Room, len(metas)),
		metas: make([]Metadata, 0, len(metas)),
	}

	for _, meta := range metas {
		if _, exists := d.rooms[meta.Name]; exists {
			return nil, fmt.Errorf("room: duplicate room name %q", meta.Name)
		}
		d.rooms[meta.Name] = New(meta)
		d.metas = append(d.metas, meta)
	}

	return d, nil
}

// Lookup returns the room with the given name.
func (d *Directory) Lookup(name string) (*Room, bool) {
	r, ok := d.rooms[name]
	return r, ok
}

// Metadatas returns the room list in insertion order.
func (d *Directory) Metadatas() []Metadata {
	return d.metas
}

// Details returns the room list as wire records for the login reply.
func (d *Directory) Details() []wire.RoomDetail {
	details := make([]wire.RoomDetail, 0, len(d.metas))
	for _, meta := range d.metas {
		details = append(details, wire.RoomDetail{Name: meta.Name, Description: meta.Description})
	}
	return details
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	return len(d.metas)
}
