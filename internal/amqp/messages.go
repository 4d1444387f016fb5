package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sync operations carried by a DocumentSyncMessage.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// DocumentSyncMessage asks the worker to mirror one local document to the
// remote store. It carries only the coordinates; the worker fetches the
// current body from the local cache, so a stale message can never overwrite a
// newer write.
type DocumentSyncMessage struct {
	UserID     string    `json:"userId"`
	Collection string    `json:"collection"`
	DocID      string    `json:"docId"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDocumentSyncMessage(user, collection, docID, op string) *DocumentSyncMessage {
	return &DocumentSyncMessage{
		UserID:     user,
		Collection: collection,
		DocID:      docID,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

func (m *DocumentSyncMessage) Validate() error {
	if m.UserID == "" || m.Collection == "" || m.DocID == "" {
		return fmt.Errorf("incomplete sync message: %+v", m)
	}
	if m.Op != OpPut && m.Op != OpDelete {
		return fmt.Errorf("unknown sync op %q", m.Op)
	}
	return nil
}

func (m *DocumentSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DocumentSyncMessageFromJSON(data []byte) (*DocumentSyncMessage, error) {
	var msg DocumentSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
